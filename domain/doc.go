// Package domain defines the core data structures of the Dar El-Teb favorites module.
// It contains the FavoriteTest model and its validation rules, as well as the repository
// interfaces that define the contracts for persistence.
//
// The package has no knowledge of how data is stored. The SQLite backend (db), the
// file backend (filekv) and the in-memory backend (memkv) all implement the interfaces
// defined here, which lets the favorites store be constructed over any of them.
package domain
