// Package api provides the REST API server for midi2wav
package api

import (
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/james-see/midi2wav/pkg/render"
	"github.com/james-see/midi2wav/pkg/render/engines"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title MIDI2WAV API
// @version 1.0
// @description API for rendering MIDI files through a SoundFont into 32-bit float WAV
// @host localhost:8080
// @BasePath /api/v1

// maxUploadMemory caps the multipart form held in memory; larger uploads spill to disk.
const maxUploadMemory = 64 << 20

// StartServer starts the API server on the specified port
func StartServer(port int, renderer *render.Renderer) error {
	r := NewRouter(renderer)
	slog.Info("api server listening", "port", port, "engine", renderer.GetEngine().Name())
	return r.Run(fmt.Sprintf(":%d", port))
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(renderer *render.Renderer) *gin.Engine {
	r := gin.Default()
	r.MaxMultipartMemory = maxUploadMemory

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.POST("/render", handleRender(renderer))
		v1.GET("/formats", listFormats)
		v1.GET("/engines", listEngines(renderer))
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "midi2wav",
	})
}

// listFormats godoc
// @Summary List supported formats
// @Description Returns the accepted input extensions and the output format
// @Tags info
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/formats [get]
func listFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"formats":             render.GetSupportedFormats(),
		"default_sample_rate": render.DefaultSampleRate,
		"output": gin.H{
			"container":   "RIFF/WAVE",
			"encoding":    "IEEE float",
			"bit_depth":   32,
			"channels":    2,
			"format_code": 3,
		},
	})
}

// listEngines godoc
// @Summary List synthesis engines
// @Description Returns the available synthesis engines and the one serving requests
// @Tags info
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/engines [get]
func listEngines(renderer *render.Renderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"engines": engines.Names(),
			"active":  renderer.GetEngine().Name(),
		})
	}
}

// handleRender godoc
// @Summary Render MIDI to WAV
// @Description Upload a MIDI file and a SoundFont and receive a stereo 32-bit float WAV file
// @Tags render
// @Accept multipart/form-data
// @Produce audio/wav
// @Param midi formData file true "MIDI performance (.mid, .midi)"
// @Param soundfont formData file true "SoundFont bank (.sf2, .sf3, .sf)"
// @Param sample_rate formData int false "Output sample rate in Hz (default: 44100)"
// @Param effects formData bool false "Enable reverb and chorus (default: false)"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/render [post]
func handleRender(renderer *render.Renderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		midiHeader, err := c.FormFile("midi")
		if err != nil {
			renderError(c, &render.InputError{Field: "midi", Value: "", Err: fmt.Errorf("no MIDI file uploaded")})
			return
		}
		bankHeader, err := c.FormFile("soundfont")
		if err != nil {
			renderError(c, &render.InputError{Field: "soundfont", Value: "", Err: fmt.Errorf("no SoundFont uploaded")})
			return
		}

		rate, err := render.ParseSampleRate(c.DefaultPostForm("sample_rate", strconv.Itoa(render.DefaultSampleRate)))
		if err != nil {
			renderError(c, err)
			return
		}
		effectsText := c.DefaultPostForm("effects", "false")
		effects, err := strconv.ParseBool(effectsText)
		if err != nil {
			renderError(c, &render.InputError{Field: "effects", Value: effectsText, Err: err})
			return
		}

		dir, err := os.MkdirTemp("", "midi2wav-*")
		if err != nil {
			renderError(c, &render.OutputError{Path: os.TempDir(), Err: err})
			return
		}
		defer func() { _ = os.RemoveAll(dir) }()

		req := render.Request{
			PerformancePath: filepath.Join(dir, "performance.mid"),
			BankPath:        filepath.Join(dir, "bank.sf2"),
			OutputPath:      filepath.Join(dir, "output.wav"),
			SampleRate:      rate,
			Effects:         effects,
		}
		if err := saveUpload(c, midiHeader, req.PerformancePath, render.ResourcePerformance); err != nil {
			renderError(c, err)
			return
		}
		if err := saveUpload(c, bankHeader, req.BankPath, render.ResourceBank); err != nil {
			renderError(c, err)
			return
		}

		if err := render.Guard(func() error { return renderer.Render(req) }); err != nil {
			renderError(c, err)
			return
		}

		result, err := os.ReadFile(req.OutputPath)
		if err != nil {
			renderError(c, &render.OutputError{Path: req.OutputPath, Err: err})
			return
		}

		outputName := render.OutputPath(filepath.Base(midiHeader.Filename))
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", outputName))
		c.Data(http.StatusOK, "audio/wav", result)
	}
}

func saveUpload(c *gin.Context, header *multipart.FileHeader, dst string, kind render.ResourceKind) error {
	if err := c.SaveUploadedFile(header, dst); err != nil {
		return &render.ResourceError{Kind: kind, Path: header.Filename, Err: err}
	}
	return nil
}

// statusFor maps an error class to an HTTP status.
func statusFor(err error) int {
	switch render.Kind(err) {
	case "input":
		return http.StatusBadRequest
	case string(render.ResourceBank), string(render.ResourcePerformance), "engine":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func renderError(c *gin.Context, err error) {
	status := statusFor(err)
	slog.Warn("render request failed", "status", status, "kind", render.Kind(err), "error", err)
	c.JSON(status, gin.H{
		"error": render.Describe(err),
		"kind":  render.Kind(err),
	})
}
