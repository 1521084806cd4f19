// Package models contains GORM persistence models for the relational side of
// the service. Domain documents live in the document store; only the
// compensation failure journal is kept here.
package models
