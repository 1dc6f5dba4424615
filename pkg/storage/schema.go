package storage

import (
	"fmt"
	"strconv"
	"strings"
)

// quoteIdent quotes a table or index name. Collection names are already
// restricted to letters, digits, '.', '_' and '-' by config validation.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// postgresSchema returns the DDL for the post table and its two non-unique indexes
func postgresSchema(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id SERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	url VARCHAR(300) NOT NULL,
	author VARCHAR(50) NOT NULL,
	text TEXT NOT NULL,
	price DOUBLE PRECISION NOT NULL,
	currency VARCHAR(8) NOT NULL
)`, quoteIdent(table)),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (title)`, quoteIdent("idx_"+table+"_title"), quoteIdent(table)),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (author)`, quoteIdent("idx_"+table+"_author"), quoteIdent(table)),
	}
}

// sqliteSchema is postgresSchema for SQLite
func sqliteSchema(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	url TEXT NOT NULL,
	author TEXT NOT NULL,
	text TEXT NOT NULL,
	price REAL NOT NULL,
	currency TEXT NOT NULL
)`, quoteIdent(table)),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (title)`, quoteIdent("idx_"+table+"_title"), quoteIdent(table)),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (author)`, quoteIdent("idx_"+table+"_author"), quoteIdent(table)),
	}
}

// insertStatement returns a parameterised insert using the given placeholder style
func insertStatement(table string, placeholder func(n int) string) string {
	params := make([]string, 6)
	for i := range params {
		params[i] = placeholder(i + 1)
	}
	return fmt.Sprintf(`INSERT INTO %s (title, url, author, text, price, currency) VALUES (%s)`,
		quoteIdent(table), strings.Join(params, ", "))
}

// priceValue converts a record's decimal-string price to a number; unparsable means 0
func priceValue(price string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(price), 64)
	if err != nil {
		return 0
	}
	return v
}

// truncateRunes cuts s to at most n characters, for VARCHAR(n) columns
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
