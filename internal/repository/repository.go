// Package repository implements persistence of storefront data in PostgreSQL.
package repository

const (
	pgErrUniqueViolationCode     = "23505"
	pgErrForeignKeyViolationCode = "23503"
)
