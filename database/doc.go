// Package database provides configuration loading, connection management
// for MySQL, PostgreSQL and SQLite, query hooks for slow query logging and
// Prometheus metrics, SQL error classification, and table bootstrap for
// registered models, all built on top of Bun.
package database
