package board

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kazz187/taskboard/pkg/cerr"
	"github.com/kazz187/taskboard/pkg/storage"
)

const exportsPrefix = "exports"

// Snapshot describes a stored export.
type Snapshot struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	TaskCount int       `json:"taskCount"`
}

// SnapshotService keeps named copies of ExportData in storage so a board can
// be rolled back.
type SnapshotService struct {
	store   *Store
	storage storage.Storage
}

func NewSnapshotService(store *Store, s storage.Storage) *SnapshotService {
	return &SnapshotService{store: store, storage: s}
}

func snapshotPath(id string) string {
	return fmt.Sprintf("%s/%s.json", exportsPrefix, id)
}

func (s *SnapshotService) Create(ctx context.Context) (*Snapshot, error) {
	payload := s.store.ExportData()
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal export: %w", err))
	}
	id := ulid.Make().String()
	if err := s.storage.Write(ctx, snapshotPath(id), data); err != nil {
		return nil, cerr.WrapStorageWriteError("export", err)
	}
	return &Snapshot{
		ID:        id,
		CreatedAt: payload.ExportedAt,
		TaskCount: len(payload.Board.Tasks),
	}, nil
}

// List returns stored snapshots, newest first. Unreadable entries are skipped.
func (s *SnapshotService) List(ctx context.Context) ([]*Snapshot, error) {
	paths, err := s.storage.List(ctx, exportsPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("exports", err)
	}
	var out []*Snapshot
	for _, p := range paths {
		id, ok := strings.CutSuffix(path.Base(p), ".json")
		if !ok {
			continue
		}
		payload, err := s.read(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, &Snapshot{
			ID:        id,
			CreatedAt: payload.ExportedAt,
			TaskCount: len(payload.Board.Tasks),
		})
	}
	// ULIDs sort by creation time.
	slices.SortFunc(out, func(a, b *Snapshot) int { return strings.Compare(b.ID, a.ID) })
	return out, nil
}

func (s *SnapshotService) read(ctx context.Context, id string) (*ExportPayload, error) {
	data, err := s.storage.Read(ctx, snapshotPath(id))
	if err != nil {
		return nil, cerr.WrapStorageReadError("export", err)
	}
	var payload ExportPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal export: %w", err))
	}
	return &payload, nil
}

func (s *SnapshotService) Get(ctx context.Context, id string) (*ExportPayload, error) {
	if _, err := ulid.ParseStrict(id); err != nil {
		return nil, cerr.NewError(cerr.InvalidArgument, "invalid export id", err)
	}
	return s.read(ctx, id)
}

// Restore runs the stored export through the regular import path.
func (s *SnapshotService) Restore(ctx context.Context, id string) (ImportResult, error) {
	if _, err := ulid.ParseStrict(id); err != nil {
		return ImportResult{}, cerr.NewError(cerr.InvalidArgument, "invalid export id", err)
	}
	data, err := s.storage.Read(ctx, snapshotPath(id))
	if err != nil {
		return ImportResult{}, cerr.WrapStorageReadError("export", err)
	}
	return s.store.ImportData(ctx, data), nil
}

func (s *SnapshotService) Clear(ctx context.Context) (int, error) {
	n, err := storage.Clear(ctx, s.storage, exportsPrefix)
	if err != nil {
		return n, cerr.WrapStorageWriteError("exports", err)
	}
	return n, nil
}
