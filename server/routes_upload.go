// routes_upload.go - Upload, Uebersetzung und Download
// Enthaelt: UploadHandler, DownloadHandler und Hilfsfunktionen

package server

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sketch2face/sketch2face/pipeline"
	"github.com/sketch2face/sketch2face/store"
	"github.com/sketch2face/sketch2face/vision"
)

// outputPrefix steht vor jedem erzeugten Dateinamen
const outputPrefix = "output_"

// UploadHandler nimmt eine Skizze im Multipart-Feld "file" entgegen, erzeugt
// das Gesicht und antwortet mit dem Bild als PNG-Data-URL.
func (s *Server) UploadHandler(c *gin.Context) {
	if c.Request.ContentLength > s.opts.MaxUploadSize {
		abortWithError(c, errTooLarge)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadSize)

	header, err := c.FormFile("file")
	if err != nil {
		abortWithError(c, uploadError(c.Request, err))
		return
	}

	if !allowedFile(header.Filename) {
		abortWithError(c, errInvalidType)
		return
	}

	filename := uuid.NewString() + "_" + secureFilename(header.Filename)
	uploadPath := filepath.Join(s.opts.UploadDir, filename)
	if err := c.SaveUploadedFile(header, uploadPath); err != nil {
		abortWithError(c, processingError{err})
		return
	}
	if !s.opts.KeepUploads {
		defer os.Remove(uploadPath)
	}

	data, err := os.ReadFile(uploadPath)
	if err != nil {
		abortWithError(c, processingError{err})
		return
	}

	ctx := c.Request.Context()
	res, err := pipeline.Run(ctx, data, s.forward)
	if err != nil {
		slog.Warn("generation failed", "upload", filename, "error", err)
		abortWithError(c, processingError{err})
		return
	}

	outputName, format := outputFilename(filename)
	if err := writeImage(filepath.Join(s.opts.OutputDir, outputName), res.Image, format); err != nil {
		abortWithError(c, processingError{err})
		return
	}

	encoded, err := vision.EncodeBytes(res.Image, vision.FormatPNG)
	if err != nil {
		abortWithError(c, processingError{err})
		return
	}

	s.record(c, store.Generation{
		InputName:   header.Filename,
		UploadPath:  uploadPath,
		OutputName:  outputName,
		Width:       res.Width,
		Height:      res.Height,
		Preprocess:  res.Preprocess,
		Inference:   res.Inference,
		Postprocess: res.Postprocess,
	})

	slog.Info("face generated", "upload", filename, "output", outputName, "result", res)
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"output_image":    "data:image/png;base64," + base64.StdEncoding.EncodeToString(encoded),
		"output_filename": outputName,
	})
}

// DownloadHandler liefert ein erzeugtes Bild als Anhang aus.
func (s *Server) DownloadHandler(c *gin.Context) {
	name := c.Param("filename")
	if !safeDownloadName(name) {
		abortWithError(c, errBadFilename)
		return
	}

	path := filepath.Join(s.opts.OutputDir, name)
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		abortWithError(c, errFileNotFound)
		return
	}

	c.FileAttachment(path, name)
}

// uploadError ordnet Fehler beim Lesen des Multipart-Formulars zu.
func uploadError(r *http.Request, err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
		return errTooLarge
	}

	// Ein Teil "file" ohne Dateinamen landet bei den Formularwerten
	if errors.Is(err, http.ErrMissingFile) && r.MultipartForm != nil {
		if _, ok := r.MultipartForm.Value["file"]; ok {
			return errNoSelection
		}
	}
	return errNoFile
}

// outputFilename bildet den Ausgabenamen zum Upload. Ohne schreibbare Endung
// wird PNG angehaengt.
func outputFilename(upload string) (string, vision.ImageFormat) {
	name := outputPrefix + upload
	format := vision.FormatFromFilename(name)
	if !format.Encodable() {
		return name + ".png", vision.FormatPNG
	}
	return name, format
}

func writeImage(path string, img *vision.RGBImage, format vision.ImageFormat) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := vision.Encode(f, img, format); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("encode %s: %w", format, err)
	}
	return f.Close()
}

// record speichert die Generierung im Verlauf, Fehler werden nur geloggt.
func (s *Server) record(c *gin.Context, g store.Generation) {
	if s.opts.History == nil {
		return
	}

	if s.opts.Checkpoint != nil {
		g.Checkpoint = s.opts.Checkpoint.Path()
	}
	if !s.opts.KeepUploads {
		g.UploadPath = ""
	}

	if _, err := s.opts.History.Add(c.Request.Context(), g); err != nil {
		slog.Warn("failed to record generation", "output", g.OutputName, "error", err)
	}
}
