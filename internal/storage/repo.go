package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"labelops/internal/chatdefaults"
)

var _ chatdefaults.Store = (*Store)(nil)

type AuditEntry struct {
	ChatID   int64
	UserID   int64
	Action   string
	MetaJSON string
}

// Load reads the whole chat_defaults table. Like the file store it does not
// cache and does not validate client ids.
func (s *Store) Load(ctx context.Context) (chatdefaults.Map, error) {
	q := s.sql.Select("chat_id", "client_id").From("chat_defaults")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build load chat defaults query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("load chat defaults: %w", err)
	}
	defer rows.Close()

	out := chatdefaults.Map{}
	for rows.Next() {
		var chatID, clientID string
		if err := rows.Scan(&chatID, &clientID); err != nil {
			return nil, fmt.Errorf("scan chat default row: %w", err)
		}
		out[chatID] = clientID
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat default rows: %w", err)
	}
	return out, nil
}

// Save makes the table hold exactly m in one transaction. Rows for chats
// outside m are deleted and the rest are upserted, so two concurrent saves
// resolve as last writer wins instead of colliding on the primary key.
func (s *Store) Save(ctx context.Context, m chatdefaults.Map) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save chat defaults: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	del := s.sql.Delete("chat_defaults")
	if len(keys) > 0 {
		del = del.Where(sq.NotEq{"chat_id": keys})
	}
	delSQL, delArgs, err := del.ToSql()
	if err != nil {
		return fmt.Errorf("build prune chat defaults query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, delSQL, delArgs...); err != nil {
		return fmt.Errorf("prune chat defaults: %w", err)
	}

	if len(keys) > 0 {
		insSQL, insArgs, err := s.upsertDefaults(keys, m).ToSql()
		if err != nil {
			return fmt.Errorf("build upsert chat defaults query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insSQL, insArgs...); err != nil {
			return fmt.Errorf("upsert chat defaults: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chat defaults: %w", err)
	}
	return nil
}

// upsertDefaults builds one multi-row insert in key order. Both postgres and
// sqlite accept the ON CONFLICT ... DO UPDATE form.
func (s *Store) upsertDefaults(keys []string, m chatdefaults.Map) sq.InsertBuilder {
	ins := s.sql.Insert("chat_defaults").Columns("chat_id", "client_id", "updated_at")
	for _, k := range keys {
		ins = ins.Values(k, m[k], nowExpr(s.driver))
	}
	return ins.Suffix("ON CONFLICT (chat_id) DO UPDATE SET client_id = excluded.client_id, updated_at = excluded.updated_at")
}

func (s *Store) RecordDefaultChange(ctx context.Context, chatID, userID int64, clientID string) error {
	meta, _ := json.Marshal(map[string]string{"client_id": clientID})
	return s.LogAction(ctx, AuditEntry{
		ChatID:   chatID,
		UserID:   userID,
		Action:   "setclient",
		MetaJSON: string(meta),
	})
}

func (s *Store) LogAction(ctx context.Context, e AuditEntry) error {
	if strings.TrimSpace(e.MetaJSON) == "" {
		e.MetaJSON = "{}"
	}
	if !json.Valid([]byte(e.MetaJSON)) {
		e.MetaJSON = "{}"
	}

	q := s.sql.Insert("audit_log").
		Columns("chat_id", "user_id", "action", "meta_json").
		Values(e.ChatID, e.UserID, e.Action, e.MetaJSON)
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build audit insert query: %w", err)
	}
	_, err = s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func nowExpr(driver string) any {
	if driver == "postgres" {
		return sq.Expr("NOW()")
	}
	return sq.Expr("CURRENT_TIMESTAMP")
}
