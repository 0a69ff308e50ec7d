// Copyright 2014-2015 The Coname Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
// 	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

// Package kv contains a generic interface for the key-value databases
// the provider keeps its records in. All operations are safe for
// concurrent use, atomic and synchronously persistent.
package kv

import "errors"

// DB is an abstract ordered key-value store. After Put(k, v) has
// returned, Get(k) must return v until the next Put or Delete of k,
// even across a restart of the process.
type DB interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	NewIterator(*Range) Iterator
	Close() error

	// ErrNotFound is the error Get returns for a missing key.
	ErrNotFound() error
}

// Iterator is an abstract pointer to a DB entry. It must be valid to
// call Error() after Release. The boolean return values indicate
// whether the requested entry exists.
type Iterator interface {
	Key() []byte
	Value() []byte
	Next() bool
	Release()
	Error() error
}

// A Range is a half-open key range. A nil Limit means no limit.
type Range struct {
	Start []byte
	Limit []byte
}

// BytesPrefix returns the range of all keys starting with prefix.
func BytesPrefix(prefix []byte) *Range {
	var limit []byte
	for i := len(prefix) - 1; i >= 0; i-- {
		if prefix[i] < 0xff {
			limit = make([]byte, i+1)
			copy(limit, prefix)
			limit[i]++
			break
		}
	}
	return &Range{Start: prefix, Limit: limit}
}

var (
	// ErrExists is returned when creating a record that already exists.
	ErrExists = errors.New("[kv] Key already exists")
)
