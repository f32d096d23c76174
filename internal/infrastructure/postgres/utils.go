package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jhoicas/suministros-api/internal/domain"
)

// Códigos SQLSTATE traducidos a errores de dominio.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeInvalidText         = "22P02"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	return pgCode(err) == codeUniqueViolation
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// translate convierte violaciones de constraints en errores de dominio; el resto se envuelve con op.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	switch pgCode(err) {
	case codeUniqueViolation:
		return domain.Conflict(fmt.Sprintf("%s: registro duplicado", op))
	case codeForeignKeyViolation:
		return &domain.Error{Kind: domain.KindDependencyExists, Message: fmt.Sprintf("%s: existen registros relacionados", op)}
	case codeCheckViolation:
		return domain.Validation(fmt.Sprintf("%s: valor fuera de rango", op), nil)
	case codeInvalidText:
		return domain.Validation(fmt.Sprintf("%s: identificador con formato inválido", op), nil)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// likePattern arma un patrón ILIKE de subcadena escapando comodines.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(s)) + "%"
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// whereBuilder acumula condiciones con placeholders posicionales. Cada "?" de cond se reemplaza por el mismo $n.
type whereBuilder struct {
	clauses []string
	args    []any
}

func (w *whereBuilder) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(w.args))))
}

func (w *whereBuilder) raw(cond string) {
	w.clauses = append(w.clauses, cond)
}

func (w *whereBuilder) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// page agrega LIMIT/OFFSET y devuelve la consulta y los argumentos finales.
func (w *whereBuilder) page(query string, limit, offset int) (string, []any) {
	args := append([]any{}, w.args...)
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}
