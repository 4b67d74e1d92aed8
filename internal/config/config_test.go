package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("ORUS_TEST_STR", "value")
	assert.Equal(t, "value", GetEnv("ORUS_TEST_STR", "default"))
	assert.Equal(t, "default", GetEnv("ORUS_TEST_MISSING", "default"))

	t.Setenv("ORUS_TEST_EMPTY", "")
	assert.Equal(t, "default", GetEnv("ORUS_TEST_EMPTY", "default"))
}

func TestTypedEnv(t *testing.T) {
	tests := []struct {
		name string
		env  string
		run  func() interface{}
		want interface{}
	}{
		{"int", "42", func() interface{} { return GetIntEnv("ORUS_TEST_VAL", 7) }, 42},
		{"int fallback", "forty", func() interface{} { return GetIntEnv("ORUS_TEST_VAL", 7) }, 7},
		{"int64", "1000000", func() interface{} { return GetInt64Env("ORUS_TEST_VAL", 1) }, int64(1000000)},
		{"duration", "300ms", func() interface{} { return GetDurationEnv("ORUS_TEST_VAL", time.Second) }, 300 * time.Millisecond},
		{"duration fallback", "soon", func() interface{} { return GetDurationEnv("ORUS_TEST_VAL", time.Second) }, time.Second},
		{"bool", "true", func() interface{} { return GetBoolEnv("ORUS_TEST_VAL", false) }, true},
		{"bool fallback", "maybe", func() interface{} { return GetBoolEnv("ORUS_TEST_VAL", true) }, true},
		{"list", "a, b,,c", func() interface{} { return GetListEnv("ORUS_TEST_VAL", nil) }, []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ORUS_TEST_VAL", tt.env)
			assert.Equal(t, tt.want, tt.run())
		})
	}
}
