package media

import (
	"context"
	"strings"
	"testing"

	"github.com/pot-code/learnhub/internal/infrastructure/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectPath(t *testing.T) {
	s := NewService(NewMemoryStore(""), uuid.NewNanoIDGenerator(12), 0)

	p, err := s.ObjectPath(KindImage, "Cover.PNG")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, "images/"))
	assert.True(t, strings.HasSuffix(p, ".png"))
	assert.Len(t, p, len("images/")+12+len(".png"))

	p, err = s.ObjectPath(KindAudio, "noext")
	require.NoError(t, err)
	assert.Len(t, p, len("audios/")+12)

	_, err = s.ObjectPath(Kind("avatar"), "a.png")
	assert.Equal(t, ErrUnknownKind, err)
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://storage.googleapis.com/media/images/a.png", publicURL("", BucketMedia, "/images/a.png"))
	assert.Equal(t, "https://cdn.example.com/course_media/lessons/a.mp4", publicURL("cdn.example.com", BucketCourseMedia, "lessons/a.mp4"))
}

func TestUpload(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore("")
	s := NewService(store, uuid.NewNanoIDGenerator(12), 8)

	obj, err := s.Upload(ctx, BucketCourseMedia, KindImage, "cover.png", 4, strings.NewReader("data"))
	require.NoError(t, err)
	assert.Equal(t, "image/png", obj.ContentType)
	assert.Equal(t, "https://storage.googleapis.com/course_media/"+obj.Path, obj.URL)
	data, ct, ok := store.Object(BucketCourseMedia, obj.Path)
	require.True(t, ok)
	assert.Equal(t, "data", string(data))
	assert.Equal(t, "image/png", ct)

	_, err = s.Upload(ctx, BucketCourseMedia, KindFile, "big.bin", 100, strings.NewReader("x"))
	assert.Equal(t, ErrTooLarge, err)

	_, err = s.Upload(ctx, BucketCourseMedia, KindFile, "big.bin", -1, strings.NewReader("0123456789"))
	assert.Equal(t, ErrTooLarge, err, "undeclared size is still bounded")

	_, err = s.Upload(ctx, Bucket("avatars"), KindFile, "a.txt", 1, strings.NewReader("x"))
	assert.Equal(t, ErrUnknownBucket, err)

	require.NoError(t, s.Delete(ctx, BucketCourseMedia, "/"+obj.Path))
	assert.Equal(t, ErrObjectMissing, s.Delete(ctx, BucketCourseMedia, obj.Path))
}

func TestKindFor(t *testing.T) {
	assert.Equal(t, KindImage, KindFor("image/webp"))
	assert.Equal(t, KindVideo, KindFor("video/mp4"))
	assert.Equal(t, KindAudio, KindFor("audio/mpeg"))
	assert.Equal(t, KindFile, KindFor("application/pdf"))
}
