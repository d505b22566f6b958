package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/learnhub/internal/imagegen"
	"github.com/pot-code/learnhub/internal/infrastructure/logging"
	"github.com/pot-code/learnhub/internal/infrastructure/validate"
	"go.uber.org/zap"
)

// FunctionHandler serverless style helpers, they answer {error} instead of the REST error body
type FunctionHandler struct {
	ImageGen  *imagegen.Client
	Validator validate.Validator
}

func NewFunctionHandler(ImageGen *imagegen.Client, Validator validate.Validator) *FunctionHandler {
	return &FunctionHandler{ImageGen, Validator}
}

type cardImagePost struct {
	Prompt string `json:"prompt"`
	Size   string `json:"size"`
}

type cardImageResult struct {
	ImageURL string `json:"imageUrl,omitempty"`
	Error    string `json:"error,omitempty"`
}

const cardImageSizes = "omitempty,oneof=256x256 512x512 1024x1024 1792x1024 1024x1792"

// HandleGenerateCardImage {prompt, size} -> {imageUrl}
func (fh *FunctionHandler) HandleGenerateCardImage(c echo.Context) error {
	if fh.ImageGen == nil || !fh.ImageGen.Configured() {
		return c.JSON(http.StatusInternalServerError, &cardImageResult{Error: imagegen.ErrNotConfigured.Error()})
	}

	post := new(cardImagePost)
	if err := c.Bind(post); err != nil {
		return c.JSON(http.StatusBadRequest, &cardImageResult{Error: "Invalid request body"})
	}
	if errs := fh.Validator.Empty("prompt", post.Prompt); errs != nil {
		return c.JSON(http.StatusBadRequest, &cardImageResult{Error: errs[0].Reason})
	}
	if errs := fh.Validator.Var("size", post.Size, cardImageSizes); errs != nil {
		return c.JSON(http.StatusBadRequest, &cardImageResult{Error: errs[0].Reason})
	}

	ctx := c.Request().Context()
	u, err := fh.ImageGen.Generate(ctx, post.Prompt, post.Size)
	if err != nil {
		code := http.StatusInternalServerError
		var ue *imagegen.UpstreamError
		switch {
		case errors.As(err, &ue):
			code = ue.StatusCode
		case errors.Is(err, imagegen.ErrEmptyPrompt):
			code = http.StatusBadRequest
		case errors.Is(err, imagegen.ErrTooLarge):
			code = http.StatusBadGateway
		}
		logging.ExtractLoggerFromContext(ctx).Warn("Card image generation failed", zap.Error(err), zap.Int("http.response.status_code", code))
		return c.JSON(code, &cardImageResult{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, &cardImageResult{ImageURL: u})
}
