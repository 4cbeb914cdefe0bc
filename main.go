package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/tejashriiii/OilSpill/config"
	"github.com/tejashriiii/OilSpill/handler"
	"github.com/tejashriiii/OilSpill/middleware"
	"github.com/tejashriiii/OilSpill/model"
	"github.com/tejashriiii/OilSpill/service"
	"github.com/tejashriiii/OilSpill/utils"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	_ = godotenv.Load()

	cfg := config.New()

	if err := utils.InitLogger(cfg.Server.Mode); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer utils.Sync()

	utils.Logger.Info("starting oil spill segmentation server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit))

	if err := os.MkdirAll(cfg.Upload.TempDir, 0755); err != nil {
		utils.Logger.Fatal("failed to create temp directory", zap.Error(err))
	}

	redisService := service.NewRedisService(&cfg.Redis)
	var cache handler.RenderCache
	if err := redisService.Ping(context.Background()); err != nil {
		utils.Logger.Warn("redis connection failed, render cache disabled", zap.Error(err))
	} else {
		utils.Logger.Info("redis connected successfully")
		cache = redisService
	}
	defer redisService.Close()

	unet, deeplab := loadModels(cfg)
	defer closeModels(unet, deeplab)

	workflowClient := service.NewWorkflowClient(&cfg.Workflow, cfg.Upload.TempDir)
	if !workflowClient.Configured() {
		utils.Logger.Warn("ROBOFLOW_API_KEY not set, aerial endpoint disabled")
	}

	predictHandler := handler.NewPredictHandler(cfg, asPredictor(unet), asPredictor(deeplab), workflowClient, cache)

	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, model.MessageResponse{Message: "Oil Spill Segmentation API"})
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, model.HealthResponse{
			Status:       "healthy",
			ModelsLoaded: predictHandler.ModelsLoaded(),
		})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	predict := r.Group("/predict")
	{
		predict.POST("/unet", predictHandler.PredictUNet)
		predict.POST("/deeplab", predictHandler.PredictDeepLab)
		predict.POST("/both", predictHandler.PredictBoth)
		predict.POST("/aerial", predictHandler.PredictAerial)
	}

	utils.Logger.Info("server starting", zap.String("port", cfg.Server.Port))
	if err := r.Run(cfg.Server.Port); err != nil {
		utils.Logger.Fatal("failed to start server", zap.Error(err))
	}
}

// loadModels initializes the ONNX runtime and both segmentation
// models. A load failure is logged but does not abort startup: the
// affected endpoints report the model as unavailable instead.
func loadModels(cfg *config.Config) (unet, deeplab *service.Segmenter) {
	if err := service.InitRuntime(cfg.Model.SharedLibrary); err != nil {
		utils.Logger.Warn("ONNX runtime initialization failed, models disabled", zap.Error(err))
		return nil, nil
	}

	unet, err := service.NewSegmenter("unet", cfg.Model.UNetPath, cfg.Model.ImageSize, cfg.Model.NumClasses)
	if err != nil {
		utils.Logger.Warn("failed to load UNet model",
			zap.String("path", cfg.Model.UNetPath), zap.Error(err))
	}

	deeplab, err = service.NewSegmenter("deeplab", cfg.Model.DeepLabPath, cfg.Model.ImageSize, cfg.Model.NumClasses)
	if err != nil {
		utils.Logger.Warn("failed to load DeepLabV3+ model",
			zap.String("path", cfg.Model.DeepLabPath), zap.Error(err))
	}

	return unet, deeplab
}

func closeModels(segmenters ...*service.Segmenter) {
	for _, s := range segmenters {
		if s != nil {
			s.Close()
		}
	}
	service.DestroyRuntime()
}

// asPredictor avoids handing the handler a typed nil interface when a
// model failed to load.
func asPredictor(s *service.Segmenter) handler.MaskPredictor {
	if s == nil {
		return nil
	}
	return s
}
