package presentation

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/atvirokodosprendimai/culturalatlas/internal/domain"
)

var csvHeader = []string{
	"id", "name", "description", "system_class", "cidoc_class",
	"begin_from", "begin_to", "begin_comment",
	"end_from", "end_to", "end_comment",
	"types", "aliases",
}

// WriteCSV writes one row per entity. Types render as "name" or
// "name: value", and multi-valued columns are joined with "; ".
func WriteCSV(w io.Writer, items []domain.Entity) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, e := range items {
		types := make([]string, 0, len(e.Types))
		for _, t := range e.Types {
			if t.Value != "" {
				types = append(types, t.Name+": "+t.Value)
				continue
			}
			types = append(types, t.Name)
		}
		row := []string{
			strconv.FormatUint(uint64(e.ID), 10),
			e.Name,
			e.Description,
			string(e.Class),
			e.CidocCode(),
			e.BeginFrom,
			e.BeginTo,
			e.BeginComment,
			e.EndFrom,
			e.EndTo,
			e.EndComment,
			strings.Join(types, "; "),
			strings.Join(e.AliasNames(), "; "),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
