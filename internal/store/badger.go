package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/mrlynn/design-reviewer-backend/internal/apperr"
)

// templateKeyPrefix namespaces template aggregates in the key space.
const templateKeyPrefix = "template/"

// BadgerConfig holds configuration for the embedded Badger store.
type BadgerConfig struct {
	// Path is the directory for database files. Ignored when InMemory is set.
	Path string

	// InMemory disables disk persistence. Useful for tests and dev mode.
	InMemory bool

	// SyncWrites forces fsync on every commit for durability.
	SyncWrites bool

	// Logger receives Badger's internal log output. Nil disables it.
	Logger *slog.Logger
}

// DefaultBadgerConfig returns production defaults.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{Path: path, SyncWrites: true}
}

// Badger is the durable Store backed by an embedded BadgerDB instance.
// Each template aggregate is one JSON value keyed by templateId, so a
// single read returns the entire lineage. Badger's transaction conflict
// detection provides the optimistic-concurrency guarantee on updates.
type Badger struct {
	db     *badger.DB
	logger *slog.Logger
	now    func() time.Time
}

var _ Store = (*Badger)(nil)

// badgerSlog adapts slog to Badger's logger interface.
type badgerSlog struct {
	logger *slog.Logger
}

func (l badgerSlog) Errorf(format string, args ...any) { l.logger.Error(fmt.Sprintf(format, args...)) }
func (l badgerSlog) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}
func (l badgerSlog) Infof(format string, args ...any)  { l.logger.Debug(fmt.Sprintf(format, args...)) }
func (l badgerSlog) Debugf(format string, args ...any) { l.logger.Debug(fmt.Sprintf(format, args...)) }

// OpenBadger opens (creating if needed) the template store.
func OpenBadger(cfg BadgerConfig) (*Badger, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("badger store path is required")
		}
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)

	logger := cfg.Logger
	if logger == nil {
		opts = opts.WithLogger(nil)
		logger = slog.Default()
	} else {
		opts = opts.WithLogger(badgerSlog{logger: logger})
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}

	return &Badger{db: db, logger: logger, now: time.Now}, nil
}

// Create implements Store.
func (b *Badger) Create(ctx context.Context, in CreateInput) (*Template, error) {
	if err := validateCreate(&in); err != nil {
		return nil, err
	}
	if err := ValidateContent(in.Content); err != nil {
		return nil, err
	}

	t := newAggregate(in, b.now().UTC())
	if err := b.put(t); err != nil {
		return nil, err
	}
	b.logger.Info("template created", "template_id", t.TemplateID, "name", t.Name)
	return t, nil
}

// Update implements Store. The read and conditional write share one
// transaction; a concurrent writer touching the same aggregate causes the
// commit to fail, surfaced as Conflict.
func (b *Badger) Update(ctx context.Context, templateID string, in UpdateInput) (*Template, error) {
	if err := validateUpdate(&in); err != nil {
		return nil, err
	}
	if in.Content != nil {
		if err := ValidateContent(*in.Content); err != nil {
			return nil, err
		}
	}

	var updated *Template
	err := b.transact(func(txn *badger.Txn) error {
		current, err := getTemplate(txn, templateID)
		if err != nil {
			return err
		}
		if in.ExpectedVersion != "" && in.ExpectedVersion != current.CurrentVersion {
			return apperr.Newf(apperr.KindConflict,
				"template %s moved from version %s to %s during update", templateID, in.ExpectedVersion, current.CurrentVersion)
		}
		updated, err = applyUpdate(current, in, b.now().UTC())
		if err != nil {
			return err
		}
		return putTemplate(txn, updated)
	})
	if err != nil {
		return nil, err
	}
	b.logger.Info("template updated", "template_id", templateID, "version", updated.CurrentVersion)
	return updated, nil
}

// Get implements Store.
func (b *Badger) Get(ctx context.Context, templateID, version string) (*Resolved, error) {
	var out *Resolved
	err := b.db.View(func(txn *badger.Txn) error {
		t, err := getTemplate(txn, templateID)
		if err != nil {
			return err
		}
		out, err = resolve(t, version)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// List implements Store.
func (b *Badger) List(ctx context.Context, f Filter) ([]Summary, error) {
	var out []Summary
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(templateKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var t Template
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &t)
			})
			if err != nil {
				return fmt.Errorf("failed to decode template %s: %w", it.Item().Key(), err)
			}
			if f.Matches(&t) {
				out = append(out, summarize(&t))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Summary{}
	}
	sortSummaries(out)
	return out, nil
}

// History implements Store.
func (b *Badger) History(ctx context.Context, templateID string) ([]VersionInfo, error) {
	var out []VersionInfo
	err := b.db.View(func(txn *badger.Txn) error {
		t, err := getTemplate(txn, templateID)
		if err != nil {
			return err
		}
		out = historyOf(t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Revert implements Store.
func (b *Badger) Revert(ctx context.Context, templateID, targetVersion, author string) (*Template, error) {
	var updated *Template
	err := b.transact(func(txn *badger.Txn) error {
		current, err := getTemplate(txn, templateID)
		if err != nil {
			return err
		}
		target := current.Version(targetVersion)
		if target == nil {
			return apperr.Newf(apperr.KindVersionNotFound, "version %s not found for template %s", targetVersion, templateID)
		}
		content := target.Content.Clone()
		updated, err = applyUpdate(current, UpdateInput{
			Content:   &content,
			Changelog: "Reverted to version " + targetVersion,
			Author:    author,
		}, b.now().UTC())
		if err != nil {
			return err
		}
		return putTemplate(txn, updated)
	})
	if err != nil {
		return nil, err
	}
	b.logger.Info("template reverted", "template_id", templateID,
		"target_version", targetVersion, "new_version", updated.CurrentVersion)
	return updated, nil
}

// Delete implements Store.
func (b *Badger) Delete(ctx context.Context, templateID string) error {
	err := b.transact(func(txn *badger.Txn) error {
		if _, err := getTemplate(txn, templateID); err != nil {
			return err
		}
		return txn.Delete([]byte(templateKeyPrefix + templateID))
	})
	if err != nil {
		return err
	}
	b.logger.Info("template deleted", "template_id", templateID)
	return nil
}

// Healthy implements Store.
func (b *Badger) Healthy(ctx context.Context) error {
	if b.db.IsClosed() {
		return apperr.New(apperr.KindUnavailable, "template store is closed")
	}
	return nil
}

// Close implements Store.
func (b *Badger) Close() error {
	return b.db.Close()
}

// transact runs fn in a read-write transaction, mapping Badger's commit
// conflict to the Conflict error kind.
func (b *Badger) transact(fn func(txn *badger.Txn) error) error {
	err := b.db.Update(fn)
	if errors.Is(err, badger.ErrConflict) {
		return apperr.Wrap(apperr.KindConflict, "concurrent update on template", err)
	}
	return err
}

// put stores an aggregate outside an existing transaction.
func (b *Badger) put(t *Template) error {
	return b.transact(func(txn *badger.Txn) error {
		return putTemplate(txn, t)
	})
}

func getTemplate(txn *badger.Txn, templateID string) (*Template, error) {
	item, err := txn.Get([]byte(templateKeyPrefix + templateID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, apperr.Newf(apperr.KindNotFound, "template %s not found", templateID)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "template store read failed", err)
	}

	var t Template
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &t)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode template %s: %w", templateID, err)
	}
	return &t, nil
}

func putTemplate(txn *badger.Txn, t *Template) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode template %s: %w", t.TemplateID, err)
	}
	return txn.Set([]byte(templateKeyPrefix+t.TemplateID), data)
}
