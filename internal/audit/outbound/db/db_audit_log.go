package db

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
	"github.com/shandysiswandi/otpgate/internal/audit/entity"
)

const (
	queryInsertAuditLog = `INSERT INTO audit_logs (id, event, email, ip_address, user_agent, device, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	querySelectAuditLog = `SELECT id, event, email, COALESCE(ip_address, ''), user_agent, device, metadata, created_at
FROM audit_logs`
)

func (s *DB) CreateAuditLog(ctx context.Context, log entity.AuditLog) (err error) {
	ctx, span := s.startSpan(ctx, "CreateAuditLog")
	defer func() { s.endSpan(span, err) }()

	var ip *string
	if log.IPAddress != "" {
		ip = &log.IPAddress
	}

	_, err = s.conn.Exec(ctx, queryInsertAuditLog,
		log.ID, log.Event, log.Email, ip, log.UserAgent, log.Device, log.Metadata, log.CreatedAt)
	return err
}

func (s *DB) GetAuditLog(ctx context.Context, id int64) (_ *entity.AuditLog, err error) {
	ctx, span := s.startSpan(ctx, "GetAuditLog")
	defer func() { s.endSpan(span, err) }()

	var out entity.AuditLog
	err = scanAuditLog(s.conn.QueryRow(ctx, querySelectAuditLog+" WHERE id = $1", id), &out)
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}

	return &out, nil
}

func (s *DB) ListAuditLogs(ctx context.Context, f entity.AuditLogFilter) (_ []entity.AuditLog, err error) {
	ctx, span := s.startSpan(ctx, "ListAuditLogs")
	defer func() { s.endSpan(span, err) }()

	where, args := buildWhere(f)
	n := len(args)
	query := querySelectAuditLog + where +
		" ORDER BY created_at DESC, id DESC LIMIT $" + strconv.Itoa(n+1) + " OFFSET $" + strconv.Itoa(n+2)

	rows, err := s.conn.Query(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]entity.AuditLog, 0, f.Limit)
	for rows.Next() {
		var l entity.AuditLog
		if err = scanAuditLog(rows, &l); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

func (s *DB) CountAuditLogs(ctx context.Context, f entity.AuditLogFilter) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "CountAuditLogs")
	defer func() { s.endSpan(span, err) }()

	where, args := buildWhere(f)

	var total int64
	err = s.conn.QueryRow(ctx, "SELECT COUNT(*) FROM audit_logs"+where, args...).Scan(&total)
	return total, err
}

func scanAuditLog(row pgx.Row, l *entity.AuditLog) error {
	return row.Scan(&l.ID, &l.Event, &l.Email, &l.IPAddress, &l.UserAgent, &l.Device, &l.Metadata, &l.CreatedAt)
}

// buildWhere renders the filter as " WHERE ..." with positional args, or ""
// when the filter is empty.
func buildWhere(f entity.AuditLogFilter) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}

	if lo.IsNotEmpty(f.Email) {
		add("email = ?", f.Email)
	}
	if lo.IsNotEmpty(f.Event) {
		add("event = ?", f.Event)
	}
	if !f.From.IsZero() {
		add("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		add("created_at <= ?", f.To)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
