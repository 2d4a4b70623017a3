package model

import (
	"fmt"
	"slices"
	"sync"

	"github.com/mchmarny/dropwatch/pkg/risk"
)

// Decoder builds a classifier of one kind. The unmarshal func decodes the
// whole model document into the passed value, so decoders only declare the
// section they own.
type Decoder func(h Header, unmarshal func(v any) error) (risk.Classifier, error)

var (
	decodersMu sync.RWMutex
	decoders   = map[string]Decoder{}
)

// Register makes a classifier kind available to Parse. It panics if the
// kind is empty, the decoder is nil, or the kind is already registered.
func Register(kind string, d Decoder) {
	decodersMu.Lock()
	defer decodersMu.Unlock()

	if kind == "" {
		panic("model: Register kind is empty")
	}
	if d == nil {
		panic("model: Register decoder is nil")
	}
	if _, dup := decoders[kind]; dup {
		panic(fmt.Sprintf("model: Register called twice for kind %s", kind))
	}
	decoders[kind] = d
}

// Kinds returns the sorted list of registered classifier kinds.
func Kinds() []string {
	decodersMu.RLock()
	defer decodersMu.RUnlock()

	list := make([]string, 0, len(decoders))
	for k := range decoders {
		list = append(list, k)
	}
	slices.Sort(list)
	return list
}

func decoderFor(kind string) (Decoder, bool) {
	decodersMu.RLock()
	defer decodersMu.RUnlock()
	d, ok := decoders[kind]
	return d, ok
}
