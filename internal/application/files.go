package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/atvirokodosprendimai/culturalatlas/internal/domain"
)

type FileUpload struct {
	Filename    string
	Description string
	Content     io.Reader
}

// fileKey names the blob of a file entity: its id plus the lower-cased
// extension of the uploaded name.
func fileKey(id uint, filename string) string {
	return fmt.Sprintf("%d%s", id, strings.ToLower(filepath.Ext(filename)))
}

// InsertFiles creates one file entity per upload and stores its blob. When
// referringID is set each file gets a P67 link to that entity. On failure the
// rows are rolled back and blobs written so far are removed.
func (s *GraphService) InsertFiles(ctx context.Context, uploads []FileUpload, referringID uint) ([]uint, error) {
	if s.files == nil {
		return nil, errors.New("file storage is not configured")
	}
	if len(uploads) == 0 {
		return nil, fmt.Errorf("at least one file is required: %w", domain.ErrInvalidArgument)
	}
	for _, u := range uploads {
		if strings.TrimSpace(u.Filename) == "" || u.Content == nil {
			return nil, fmt.Errorf("every file needs a name and content: %w", domain.ErrInvalidArgument)
		}
	}

	ids := make([]uint, 0, len(uploads))
	saved := make([]string, 0, len(uploads))
	err := s.runTx(ctx, "file.insert", func(repo domain.GraphRepository) error {
		if referringID != 0 {
			if _, err := repo.GetEntity(ctx, referringID); err != nil {
				return err
			}
		}
		for _, u := range uploads {
			name := filepath.Base(strings.TrimSpace(u.Filename))
			e, err := repo.InsertEntity(ctx, domain.Entity{
				Class:       domain.ClassFile,
				Name:        name,
				Description: strings.TrimSpace(u.Description),
			})
			if err != nil {
				return err
			}
			key := fileKey(e.ID, name)
			if err := s.files.Save(ctx, key, u.Content); err != nil {
				return err
			}
			saved = append(saved, key)
			if referringID != 0 {
				if _, err := repo.InsertLink(ctx, domain.Link{
					Property: "P67",
					Domain:   domain.EntityRef{ID: e.ID},
					Range:    domain.EntityRef{ID: referringID},
				}); err != nil {
					return err
				}
			}
			if err := repo.InsertLog(ctx, domain.EntityLog{EntityID: e.ID, Action: "insert", Metadata: map[string]any{"name": name, "key": key}}); err != nil {
				return err
			}
			ids = append(ids, e.ID)
		}
		return nil
	})
	if err != nil {
		for _, key := range saved {
			if delErr := s.files.Delete(ctx, key); delErr != nil {
				s.log.Warn("orphaned file blob", "key", key, "error", delErr)
			}
		}
		return nil, err
	}
	return ids, nil
}

// OpenFile streams the blob of a file entity.
func (s *GraphService) OpenFile(ctx context.Context, id uint) (io.ReadCloser, domain.Entity, error) {
	if s.files == nil {
		return nil, domain.Entity{}, errors.New("file storage is not configured")
	}
	e, err := s.repo.GetEntity(ctx, id)
	if err != nil {
		return nil, domain.Entity{}, err
	}
	if e.Class != domain.ClassFile {
		return nil, domain.Entity{}, fmt.Errorf("entity %d is not a file: %w", id, domain.ErrInvalidArgument)
	}
	rc, err := s.files.Open(ctx, fileKey(e.ID, e.Name))
	if err != nil {
		return nil, domain.Entity{}, err
	}
	return rc, e, nil
}
