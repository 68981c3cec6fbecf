package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/atvirokodosprendimai/culturalatlas/internal/application"
)

type entityQuery struct {
	IDs     []uint
	Classes []string
	View    string
	Search  string
	Limit   int
}

func doEntityGet(ctx context.Context, cfg cliConfig, id uint, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "entity.get", map[string]any{"id": id}, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/entity/"+uintToString(id)+"?format=json", nil, out)
}

func doEntityQuery(ctx context.Context, cfg cliConfig, q entityQuery, out any) error {
	if cfg.Transport == "uds" {
		params := map[string]any{
			"ids":            q.IDs,
			"system_classes": q.Classes,
			"view":           q.View,
			"limit":          q.Limit,
		}
		if q.Search != "" {
			params["search"] = q.Search
		}
		return newRPCClient(cfg.Socket).call(ctx, "search.run", params, out)
	}

	// the HTTP API selects by exactly one of ids, classes or view
	values := url.Values{"format": {"json"}}
	var path string
	switch {
	case len(q.IDs) > 0:
		ids := make([]string, 0, len(q.IDs))
		for _, id := range q.IDs {
			ids = append(ids, uintToString(id))
		}
		values.Set("ids", strings.Join(ids, ","))
		path = "/api/entities"
	case len(q.Classes) > 0:
		path = "/api/system_class/" + url.PathEscape(strings.Join(q.Classes, ","))
	case q.View != "":
		path = "/api/view/" + url.PathEscape(q.View)
	default:
		return fmt.Errorf("one of ids, class or view is required")
	}
	if q.Search != "" {
		values.Set("search", q.Search)
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, path+"?"+values.Encode(), nil, out)
}

func doEntitySave(ctx context.Context, cfg cliConfig, in application.SaveInput, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "entity.save", in, out)
	}
	client := newAPIClient(cfg.Server)
	if in.ID != 0 {
		return client.request(ctx, http.MethodPut, "/api/entities/"+uintToString(in.ID), in, out)
	}
	return client.request(ctx, http.MethodPost, "/api/entities", in, out)
}

func doEntityDelete(ctx context.Context, cfg cliConfig, id uint) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "entity.delete", map[string]any{"id": id}, nil)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodDelete, "/api/entities/"+uintToString(id), nil, nil)
}

func doLinksList(ctx context.Context, cfg cliConfig, id uint, codes string, inverse bool, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "links.list", map[string]any{"id": id, "codes": codes, "inverse": inverse}, out)
	}
	values := url.Values{}
	if codes != "" {
		values.Set("codes", codes)
	}
	if inverse {
		values.Set("inverse", "true")
	}
	path := "/api/links/" + uintToString(id)
	if len(values) > 0 {
		path += "?" + values.Encode()
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, path, nil, out)
}

// doTypeIDs serves both subs and root, which differ only in method name
// and response key.
func doTypeIDs(ctx context.Context, cfg cliConfig, method string, id uint, out *[]uint) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "types."+method, map[string]any{"id": id}, out)
	}
	var resp map[string][]uint
	if err := newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/type/"+uintToString(id)+"/"+method, nil, &resp); err != nil {
		return err
	}
	*out = resp[method]
	return nil
}

func doTypeTree(ctx context.Context, cfg cliConfig, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "types.tree", nil, out)
	}
	var resp struct {
		TypeTree json.RawMessage `json:"type_tree"`
	}
	if err := newAPIClient(cfg.Server).request(ctx, http.MethodGet, "/api/type_tree", nil, &resp); err != nil {
		return err
	}
	return json.Unmarshal(resp.TypeTree, out)
}

func doTypeReparent(ctx context.Context, cfg cliConfig, id, parent uint) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "types.reparent", map[string]any{"id": id, "parent_id": parent}, nil)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodPost, "/api/type/"+uintToString(id)+"/parent", map[string]any{"parent_id": parent}, nil)
}

func doTraverse(ctx context.Context, cfg cliConfig, id uint, depth int, codes string, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "traverse.run", map[string]any{
			"start_entity_id": id,
			"max_depth":       depth,
			"codes":           codes,
		}, out)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodPost, "/api/traverse", map[string]any{
		"start_entity_id": id,
		"max_depth":       depth,
		"codes":           splitCSV(codes),
	}, out)
}

func doLogs(ctx context.Context, cfg cliConfig, id uint, limit int, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "logs.list", map[string]any{"id": id, "limit": limit}, out)
	}
	path := "/api/logs/" + uintToString(id)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	return newAPIClient(cfg.Server).request(ctx, http.MethodGet, path, nil, out)
}

func splitCSV(input string) []string {
	parts := strings.Split(input, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func parseUintList(input string) ([]uint, error) {
	parts := splitCSV(input)
	out := make([]uint, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseUint(part, 10, 64)
		if err != nil || v == 0 {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		out = append(out, uint(v))
	}
	return out, nil
}

func uintToString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
