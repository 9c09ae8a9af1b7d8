//go:build !faiss || !cgo

package vector

import (
	"context"
	"errors"
)

// ErrFAISSUnavailable is returned by every FAISSIndex operation in builds without FAISS.
var ErrFAISSUnavailable = errors.New("FAISS not available: build with -tags=faiss and install the FAISS C library")

// FAISSIndex is a stub. Build with -tags=faiss to enable FAISS support.
type FAISSIndex struct{}

// NewFAISSIndex returns ErrFAISSUnavailable.
func NewFAISSIndex(int) (*FAISSIndex, error) {
	return nil, ErrFAISSUnavailable
}

func (f *FAISSIndex) Add(context.Context, [][]float32) error { return ErrFAISSUnavailable }

func (f *FAISSIndex) Search(context.Context, []float32, int) ([]Hit, error) {
	return nil, ErrFAISSUnavailable
}

func (f *FAISSIndex) Save(string) error { return ErrFAISSUnavailable }

func (f *FAISSIndex) Load(string) error { return ErrFAISSUnavailable }

func (f *FAISSIndex) Size() int { return 0 }

func (f *FAISSIndex) Dimensions() int { return 0 }

func (f *FAISSIndex) Close() error { return nil }

func (f *FAISSIndex) Type() string { return string(IndexTypeFAISS) }
