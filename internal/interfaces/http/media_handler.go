package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/learnhub/internal/media"
)

type MediaHandler struct {
	Media *media.Service
}

func NewMediaHandler(Media *media.Service) *MediaHandler {
	return &MediaHandler{Media}
}

func (mh *MediaHandler) available() error {
	if mh.Media == nil {
		return NewRESTStandardError(http.StatusServiceUnavailable, "Media storage is disabled")
	}
	return nil
}

// HandleUpload multipart form with file, optional bucket (course_media by default) and kind
func (mh *MediaHandler) HandleUpload(c echo.Context) error {
	if err := mh.available(); err != nil {
		return err
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return NewRESTStandardError(http.StatusBadRequest, "file is required")
	}

	bucket := media.Bucket(c.FormValue("bucket"))
	if bucket == "" {
		bucket = media.BucketCourseMedia
	}
	kind := media.Kind(c.FormValue("kind"))
	if kind == "" {
		kind = media.KindFor(fh.Header.Get(echo.HeaderContentType))
	}

	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	obj, err := mh.Media.Upload(c.Request().Context(), bucket, kind, fh.Filename, fh.Size, src)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, obj)
}

// HandleDelete ?bucket=&path=
func (mh *MediaHandler) HandleDelete(c echo.Context) error {
	if err := mh.available(); err != nil {
		return err
	}
	path := c.QueryParam("path")
	if path == "" {
		return NewRESTStandardError(http.StatusBadRequest, "path is required")
	}
	if err := mh.Media.Delete(c.Request().Context(), media.Bucket(c.QueryParam("bucket")), path); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
