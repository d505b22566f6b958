package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lessonPost struct {
	ID    string `json:"id" validate:"entity_id"`
	Title string `json:"title" validate:"required,max=10"`
}

func TestStruct(t *testing.T) {
	v := NewValidator()

	assert.Nil(t, v.Struct(&lessonPost{ID: "3f1c2b8e-9d4a-4c6f-8b2e-1a2b3c4d5e6f", Title: "intro"}))

	errs := v.Struct(&lessonPost{ID: "nope"})
	require.Len(t, errs, 2)
	assert.Equal(t, "id", errs[0].Domain)
	assert.Equal(t, "id must be a valid UUID", errs[0].Reason)
	assert.Equal(t, "title", errs[1].Domain)
}

func TestEmptyAndAllEmpty(t *testing.T) {
	v := NewValidator()

	assert.Nil(t, v.Empty("ts", "2020"))
	errs := v.Empty("ts", "")
	require.Len(t, errs, 1)
	assert.Equal(t, "ts is required", errs[0].Reason)

	assert.Nil(t, v.AllEmpty([]string{"username", "email"}, "", "a@b.c"))
	fe := v.AllEmpty([]string{"username", "email"}, "", "")
	require.NotNil(t, fe)
	assert.Equal(t, "username,email", fe.Domain)

	assert.Panics(t, func() { v.AllEmpty([]string{"a"}) })
}

func TestVar(t *testing.T) {
	v := NewValidator()
	assert.Nil(t, v.Var("size", "512x512", "oneof=256x256 512x512 1024x1024"))
	errs := v.Var("size", "1x1", "oneof=256x256 512x512 1024x1024")
	require.Len(t, errs, 1)
	assert.Equal(t, "size", errs[0].Domain)
}
