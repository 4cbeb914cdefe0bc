package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tejashriiii/OilSpill/config"
	"github.com/tejashriiii/OilSpill/model"
	"github.com/tejashriiii/OilSpill/service"
	"github.com/tejashriiii/OilSpill/utils"
)

// MaskPredictor is the segmentation model surface the handlers need.
type MaskPredictor interface {
	PredictMask(input []float32) ([]int, error)
}

// WorkflowRunner is the external aerial detection surface.
type WorkflowRunner interface {
	Configured() bool
	Run(ctx context.Context, imageData []byte) (any, error)
}

// RenderCache stores rendered PNGs by content key. May be nil.
type RenderCache interface {
	GetRender(ctx context.Context, key string) ([]byte, error)
	SetRender(ctx context.Context, key string, png []byte) error
}

type PredictHandler struct {
	cfg      *config.Config
	unet     MaskPredictor
	deeplab  MaskPredictor
	workflow WorkflowRunner
	cache    RenderCache
}

func NewPredictHandler(cfg *config.Config, unet, deeplab MaskPredictor, workflow WorkflowRunner, cache RenderCache) *PredictHandler {
	return &PredictHandler{
		cfg:      cfg,
		unet:     unet,
		deeplab:  deeplab,
		workflow: workflow,
		cache:    cache,
	}
}

// ModelsLoaded reports whether both segmentation models are available.
func (h *PredictHandler) ModelsLoaded() bool {
	return h.unet != nil && h.deeplab != nil
}

// PredictUNet renders the UNet segmentation figure for an upload.
func (h *PredictHandler) PredictUNet(c *gin.Context) {
	h.predictSingle(c, h.unet, "UNet", "unet_prediction.png", "unet")
}

// PredictDeepLab renders the DeepLabV3+ segmentation figure.
func (h *PredictHandler) PredictDeepLab(c *gin.Context) {
	h.predictSingle(c, h.deeplab, "DeepLabV3+", "deeplab_prediction.png", "deeplab")
}

func (h *PredictHandler) predictSingle(c *gin.Context, m MaskPredictor, label, filename, endpoint string) {
	data, ok := h.readUpload(c)
	if !ok {
		return
	}

	if m == nil {
		h.fail(c, http.StatusInternalServerError, fmt.Sprintf("%s model not loaded", label), service.ErrModelUnavailable)
		return
	}

	cacheKey := utils.BytesMD5(data) + ":" + endpoint
	if png := h.cachedRender(c, cacheKey); png != nil {
		servePNG(c, png, filename)
		return
	}

	img, err := service.DecodeImage(data)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "failed to decode image", err)
		return
	}

	frame := service.Preprocess(img)

	mask, err := m.PredictMask(frame.Pixels)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "prediction failed", err)
		return
	}

	png, err := service.RenderPanels(frame, mask, label)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "failed to render figure", err)
		return
	}

	h.storeRender(c, cacheKey, png)
	servePNG(c, png, filename)
}

// PredictBoth renders a 2x3 grid comparing both models on one upload.
func (h *PredictHandler) PredictBoth(c *gin.Context) {
	data, ok := h.readUpload(c)
	if !ok {
		return
	}

	if h.unet == nil || h.deeplab == nil {
		h.fail(c, http.StatusInternalServerError, "models not loaded", service.ErrModelUnavailable)
		return
	}

	cacheKey := utils.BytesMD5(data) + ":both"
	if png := h.cachedRender(c, cacheKey); png != nil {
		servePNG(c, png, "both_predictions.png")
		return
	}

	img, err := service.DecodeImage(data)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "failed to decode image", err)
		return
	}

	frame := service.Preprocess(img)

	unetMask, err := h.unet.PredictMask(frame.Pixels)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "UNet prediction failed", err)
		return
	}

	deeplabMask, err := h.deeplab.PredictMask(frame.Pixels)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "DeepLabV3+ prediction failed", err)
		return
	}

	png, err := service.RenderGrid(frame, unetMask, "UNet", deeplabMask, "DeepLabV3+")
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "failed to render figure", err)
		return
	}

	h.storeRender(c, cacheKey, png)
	servePNG(c, png, "both_predictions.png")
}

// PredictAerial runs the external detection workflow and returns the
// polygon overlay.
func (h *PredictHandler) PredictAerial(c *gin.Context) {
	data, ok := h.readUpload(c)
	if !ok {
		return
	}

	if h.workflow == nil || !h.workflow.Configured() {
		h.fail(c, http.StatusInternalServerError, "aerial workflow not configured", service.ErrWorkflowNotConfigured)
		return
	}

	cacheKey := utils.BytesMD5(data) + ":aerial"
	if png := h.cachedRender(c, cacheKey); png != nil {
		servePNG(c, png, "aerial_prediction.png")
		return
	}

	img, err := service.DecodeImage(data)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "failed to decode image", err)
		return
	}

	result, err := h.workflow.Run(c.Request.Context(), data)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "workflow inference failed", err)
		return
	}

	bounds := img.Bounds()
	detections := service.NormalizeDetections(result, bounds.Dx(), bounds.Dy())

	utils.Logger.Info("aerial detections normalized",
		zap.Int("count", len(detections)),
		zap.Int("width", bounds.Dx()),
		zap.Int("height", bounds.Dy()))

	png, err := service.RenderAerialOverlay(img, detections)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "failed to render overlay", err)
		return
	}

	h.storeRender(c, cacheKey, png)
	servePNG(c, png, "aerial_prediction.png")
}

// readUpload validates and reads the multipart image. The content-type
// check runs before any model is touched; a false return means the
// response has already been written.
func (h *PredictHandler) readUpload(c *gin.Context) ([]byte, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.fail(c, http.StatusBadRequest, "no file uploaded", err)
		return nil, false
	}

	if fileHeader.Size > h.cfg.Upload.MaxSize {
		h.fail(c, http.StatusBadRequest,
			fmt.Sprintf("file exceeds the %d MB limit", h.cfg.Upload.MaxSize/(1024*1024)), nil)
		return nil, false
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		h.fail(c, http.StatusBadRequest, "file must be an image", nil)
		return nil, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "failed to open upload", err)
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "failed to read upload", err)
		return nil, false
	}

	return data, true
}

// cachedRender returns a cached PNG or nil. Cache errors count as
// misses.
func (h *PredictHandler) cachedRender(c *gin.Context, key string) []byte {
	if h.cache == nil {
		return nil
	}
	png, err := h.cache.GetRender(c.Request.Context(), key)
	if err != nil {
		utils.Logger.Warn("render cache get failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	if png != nil {
		utils.Logger.Info("render cache hit", zap.String("key", key))
	}
	return png
}

func (h *PredictHandler) storeRender(c *gin.Context, key string, png []byte) {
	if h.cache == nil {
		return
	}
	if err := h.cache.SetRender(c.Request.Context(), key, png); err != nil {
		utils.Logger.Warn("render cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func (h *PredictHandler) fail(c *gin.Context, status int, message string, err error) {
	fields := []zap.Field{
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", status),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	utils.Logger.Error(message, fields...)

	resp := model.ErrorResponse{Success: false, Message: message}
	if err != nil {
		resp.Error = err.Error()
	}
	c.JSON(status, resp)
}

func servePNG(c *gin.Context, png []byte, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "image/png", png)
}
