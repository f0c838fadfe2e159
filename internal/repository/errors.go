// Package repository holds the MySQL-backed stores and the sentinel errors
// they return. Higher layers translate these into apperr kinds.
package repository

import "errors"

// ErrNotFound is returned when a lookup or targeted update matches no row.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when inserting a user whose email is taken.
var ErrEmailExists = errors.New("email already exists")

// ErrRoleAlreadySet is returned by the conditional role update when the
// user's role was no longer NULL at write time.
var ErrRoleAlreadySet = errors.New("role already set")
