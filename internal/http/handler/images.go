package handler

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/utils"

	"imgupload/internal/model"
	"imgupload/internal/service"
	"imgupload/internal/validation"
)

const (
	fieldImage  = "image"
	fieldImages = "images"
)

type uploadResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    model.Image `json:"data"`
}

type multiUploadResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Data    []model.Image `json:"data"`
}

type listResponse struct {
	Success bool                 `json:"success"`
	Count   int                  `json:"count"`
	Data    []model.CatalogEntry `json:"data"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck godoc
// @Summary Readiness probe
// @Description Checks that the image store is reachable.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} errorPayload
// @Router /health [get]
func HealthCheck(p Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", msgUnavailable, err)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe godoc
// @Summary Liveness probe
// @Tags health
// @Success 200
// @Router /healthz [get]
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// StaticAsset serves one file from the embedded web assets.
func StaticAsset(assets http.FileSystem, name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return filesystem.SendFile(c, assets, name)
	}
}

// UploadImage godoc
// @Summary Upload a single image
// @Description Stores one image (JPG, PNG, GIF, WebP; request body limited by MAX_BODY_BYTES, 5MB by default) and optionally derives a thumbnail and an optimized copy.
// @Tags images
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "Image file"
// @Param generateThumbnail formData string false "\"true\" to create a thumbnail"
// @Param optimize formData string false "\"true\" to recompress the stored image"
// @Success 200 {object} uploadResponse
// @Failure 400 {object} errorPayload
// @Failure 413 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /api/upload [post]
func UploadImage(svc service.ImageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		form, err := c.MultipartForm()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "NO_FILE", msgNoFile, nil)
		}

		files := form.File[fieldImage]
		if len(files) == 0 {
			// Parts sent without a filename arrive as plain values: the field was there but empty.
			if _, ok := form.Value[fieldImage]; ok {
				return writeError(c, fiber.StatusBadRequest, "EMPTY_FILENAME", msgEmptyFilename, nil)
			}
			return writeError(c, fiber.StatusBadRequest, "NO_FILE", msgNoFile, nil)
		}

		fh := files[0]
		in := &service.UploadInput{Filename: fh.Filename, Size: fh.Size, Open: opener(fh)}
		res, err := svc.Upload(c.UserContext(), in, uploadOptions(c))
		if err != nil {
			switch {
			case errors.Is(err, service.ErrNoFile):
				return writeError(c, fiber.StatusBadRequest, "NO_FILE", msgNoFile, nil)
			case errors.Is(err, validation.ErrEmptyFilename):
				return writeError(c, fiber.StatusBadRequest, "EMPTY_FILENAME", msgEmptyFilename, nil)
			case errors.Is(err, validation.ErrUnsupportedType):
				return writeError(c, fiber.StatusBadRequest, "INVALID_TYPE", msgInvalidType, nil)
			default:
				return writeError(c, fiber.StatusInternalServerError, "UPLOAD_FAILED", msgUploadFailed, err)
			}
		}

		return c.JSON(uploadResponse{
			Success: true,
			Message: message(c, msgUploaded),
			Data:    res.Image,
		})
	}
}

// UploadImages godoc
// @Summary Upload several images
// @Description Files with a missing name or unsupported type are skipped without an error.
// @Tags images
// @Accept multipart/form-data
// @Produce json
// @Param images formData file true "Image files"
// @Param generateThumbnail formData string false "\"true\" to create thumbnails"
// @Param optimize formData string false "\"true\" to recompress the stored images"
// @Success 200 {object} multiUploadResponse
// @Failure 400 {object} errorPayload
// @Failure 413 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /api/upload-multiple [post]
func UploadImages(svc service.ImageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		form, err := c.MultipartForm()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "NO_FILE", msgNoFile, nil)
		}

		inputs := make([]service.UploadInput, 0, len(form.File[fieldImages]))
		for _, fh := range form.File[fieldImages] {
			inputs = append(inputs, service.UploadInput{Filename: fh.Filename, Size: fh.Size, Open: opener(fh)})
		}
		// Empty file inputs carry no filename and cannot be opened; the service skips them.
		for range form.Value[fieldImages] {
			inputs = append(inputs, service.UploadInput{})
		}

		res, err := svc.UploadMany(c.UserContext(), inputs, uploadOptions(c))
		if err != nil {
			if errors.Is(err, service.ErrNoFiles) {
				return writeError(c, fiber.StatusBadRequest, "NO_FILE", msgNoFile, nil)
			}
			return writeError(c, fiber.StatusInternalServerError, "UPLOAD_FAILED", msgUploadManyFailed, err)
		}

		images := res.Images()
		return c.JSON(multiUploadResponse{
			Success: true,
			Message: message(c, msgUploadedMany, len(images)),
			Data:    images,
		})
	}
}

// ListImages godoc
// @Summary List stored images
// @Tags images
// @Produce json
// @Success 200 {object} listResponse
// @Failure 500 {object} errorPayload
// @Router /api/images [get]
func ListImages(svc service.ImageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := svc.List(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "LIST_FAILED", msgListFailed, err)
		}
		return c.JSON(listResponse{Success: true, Count: len(items), Data: items})
	}
}

// DeleteImage godoc
// @Summary Delete an image and its thumbnail
// @Tags images
// @Produce json
// @Param filename path string true "Stored filename"
// @Success 200 {object} messageResponse
// @Failure 404 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /api/images/{filename} [delete]
func DeleteImage(svc service.ImageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), utils.CopyString(c.Params("filename"))); err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", msgNotFound, nil)
			}
			return writeError(c, fiber.StatusInternalServerError, "DELETE_FAILED", msgDeleteFailed, err)
		}
		return c.JSON(messageResponse{Success: true, Message: message(c, msgDeleted)})
	}
}

// ServeImage streams a stored original, or its thumbnail when thumbnail is true.
func ServeImage(svc service.ImageService, thumbnail bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name := utils.CopyString(c.Params("name"))
		rc, info, err := svc.Open(c.UserContext(), name, thumbnail)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", msgNotFound, nil)
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", msgInternal, err)
		}

		c.Type(filepath.Ext(name))
		if !info.ModTime.IsZero() {
			c.Set(fiber.HeaderLastModified, info.ModTime.UTC().Format(http.TimeFormat))
		}
		// fasthttp closes the stream once the body is written.
		return c.SendStream(rc, int(info.Size))
	}
}

func uploadOptions(c *fiber.Ctx) service.Options {
	return service.Options{
		Thumbnail: c.FormValue("generateThumbnail") == "true",
		Optimize:  c.FormValue("optimize") == "true",
	}
}

func opener(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return fh.Open()
	}
}
