// Package strongbox is a deliberately weak encrypted filesystem used to
// demonstrate how a deterministic, position-reused disk cipher leaks
// information to anyone who can watch the ciphertext.
//
// # Overview
//
// A strongbox filesystem is an in-memory tree of directories and fixed-size
// files. All file contents live in one flat byte arena; each file owns a
// disjoint window of it. The arena is mirrored to two durable artifacts on
// a Store:
//
//   - the plaintext snapshot, the raw arena bytes
//   - the cipher snapshot, the arena encrypted with AES-256-XTS as a single
//     sector under one key and tweak for the lifetime of the process
//
// Every read, write and truncate first restores the arena from the durable
// plaintext snapshot, then serves the request. Writes and truncates commit
// both snapshots afterwards.
//
// # The weakness
//
// XTS derives each block's tweak from its position only. Writing the same
// bytes at the same offset therefore always produces the same ciphertext,
// so an observer without the key can test guesses about the plaintext by
// comparing cipher snapshots. The attack package implements two such
// tests: locating a known file, and recovering a secret through a
// match-count oracle.
//
// # Basic Usage
//
//	store, _ := memfs.NewFS()
//	cfg := strongbox.DefaultConfig()
//
//	key, _ := strongbox.NewCipherKey()
//	cipher, _ := strongbox.NewArenaCipher(key)
//	files, _ := strongbox.NewSnapshotFiles(store, cfg)
//	mirror, _ := strongbox.NewMirror(files, cipher, nil)
//
//	fs, _ := strongbox.New(cfg, mirror, nil)
//	goals, _ := strongbox.Bootstrap(fs, strongbox.NewRand(cfg.Seed))
//	_ = strongbox.ExportGoals(store, cfg.GoalDir, goals)
//
// Files never grow. A write past the fixed size fails with ErrTooLarge, and
// truncate always zeroes the whole file whatever length is requested.
//
// # Concurrency
//
// FS serializes every operation behind one mutex. The restore-on-access
// policy assumes a single actor: attacks run serially against one live
// instance.
package strongbox
