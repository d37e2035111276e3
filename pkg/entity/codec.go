// Package entity defines the serialization contract a chain uses to move
// between its generic entity type T and the JSON documents the patch engine
// operates on.
package entity

import goccyjson "github.com/goccy/go-json"

// Codec serializes and deserializes an entity of type T.
type Codec[T any] interface {
	// Serialize encodes v as a JSON document.
	Serialize(v T) (string, error)
	// Deserialize decodes a JSON document into a fresh T.
	Deserialize(doc string) (T, error)
}

// Populator additionally supports decoding into an existing T in place,
// rather than allocating a fresh value. Not every Codec needs to support
// this; chain.PatchToDateInto requires it and reports
// chain.CodePopulateNotConfigured when the configured Codec doesn't
// implement it.
type Populator[T any] interface {
	// Populate decodes doc into *target, overwriting its fields.
	Populate(doc string, target *T) error
}

// JSONCodec is the default Codec, backed by goccy/go-json.
type JSONCodec[T any] struct{}

// NewJSONCodec returns the default JSON-backed codec for T.
func NewJSONCodec[T any]() JSONCodec[T] {
	return JSONCodec[T]{}
}

func (JSONCodec[T]) Serialize(v T) (string, error) {
	b, err := goccyjson.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (JSONCodec[T]) Deserialize(doc string) (T, error) {
	var v T
	if err := goccyjson.Unmarshal([]byte(doc), &v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

func (JSONCodec[T]) Populate(doc string, target *T) error {
	return goccyjson.Unmarshal([]byte(doc), target)
}

var (
	_ Codec[any]      = JSONCodec[any]{}
	_ Populator[any]  = JSONCodec[any]{}
)
