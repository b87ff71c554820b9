// Package repository provides a generic repository abstraction built on Bun.
//
// Every operation runs on a caller-supplied Session wrapping a bun.IDB,
// normally an open transaction. The session tracks the instances written
// through it, which lets Save tell new, tracked, and foreign instances apart.
// Batch reads and bulk updates split their input into chunks and send one
// statement per chunk, in order, on the same session.
package repository
