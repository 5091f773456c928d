package handlers

import (
	"context"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/BayRex1/bayrex-apk/internal/blob"
	"github.com/BayRex1/bayrex-apk/internal/catalog"
	"github.com/BayRex1/bayrex-apk/internal/metrics"
	"github.com/BayRex1/bayrex-apk/internal/middleware"
	"github.com/BayRex1/bayrex-apk/internal/models"
	"github.com/BayRex1/bayrex-apk/internal/store"
)

type AppHandler struct {
	store       store.Store
	catalog     *catalog.Service
	intake      *blob.Intake
	blobs       blob.BlobStore
	metrics     *metrics.Metrics
	baseURL     string
	deleteFiles bool
	log         logrus.FieldLogger
}

// AppHandlerConfig carries the collaborators of AppHandler.
type AppHandlerConfig struct {
	Store   store.Store
	Catalog *catalog.Service
	Intake  *blob.Intake
	Blobs   blob.BlobStore
	Metrics *metrics.Metrics
	// BaseURL prefixes download links; empty means the request's own origin.
	BaseURL string
	// DeleteFiles removes stored blobs when an app is deleted or a file is
	// replaced.
	DeleteFiles bool
	Log         logrus.FieldLogger
}

func NewAppHandler(cfg AppHandlerConfig) *AppHandler {
	return &AppHandler{
		store:       cfg.Store,
		catalog:     cfg.Catalog,
		intake:      cfg.Intake,
		blobs:       cfg.Blobs,
		metrics:     cfg.Metrics,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		deleteFiles: cfg.DeleteFiles,
		log:         cfg.Log,
	}
}

// List returns a filtered, sorted page of apps
func (h *AppHandler) List(c *fiber.Ctx) error {
	q := catalog.Query{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Featured: parseBool(c.Query("featured")),
		Sort:     store.ParseSort(c.Query("sort")),
		Limit:    c.QueryInt("limit", 0),
		Offset:   c.QueryInt("offset", 0),
	}

	page, err := h.catalog.Query(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    page,
	})
}

// Get returns one app
func (h *AppHandler) Get(c *fiber.Ctx) error {
	id, err := appID(c)
	if err != nil {
		return err
	}
	app, err := h.store.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    catalog.View(*app),
	})
}

// Create adds an app from a multipart form with an "apk" and optional "icon" file
func (h *AppHandler) Create(c *fiber.Ctx) error {
	values, files, err := readForm(c)
	if err != nil {
		return err
	}

	collected, err := h.intake.Collect(files)
	if err != nil {
		return err
	}
	form, err := parseAppForm(values)
	if err != nil {
		return err
	}
	if form.Name == nil || strings.TrimSpace(*form.Name) == "" ||
		form.Description == nil || strings.TrimSpace(*form.Description) == "" ||
		collected.APK == nil {
		return &store.ValidationError{Field: "name", Message: "name, description and apk file are required"}
	}

	apk, icon, err := h.storeFiles(c.UserContext(), collected)
	if err != nil {
		return err
	}

	app := &models.App{
		Name:            *form.Name,
		Description:     *form.Description,
		Version:         deref(form.Version),
		Category:        deref(form.Category),
		APKFilename:     apk.Name,
		OriginalAPKName: apk.OriginalName,
		FileSize:        apk.Size,
	}
	if form.Featured != nil {
		app.IsFeatured = *form.Featured
	}
	if icon != nil {
		app.IconFilename = &icon.Name
	}

	if err := h.store.Create(c.UserContext(), app); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "App created successfully",
		"data":    catalog.View(*app),
	})
}

// Update merges the submitted fields over an app. Files are replaced only
// when a new one is uploaded.
func (h *AppHandler) Update(c *fiber.Ctx) error {
	id, err := appID(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()

	before, err := h.store.Get(ctx, id)
	if err != nil {
		return err
	}

	values, files, err := readForm(c)
	if err != nil {
		return err
	}
	collected, err := h.intake.Collect(files)
	if err != nil {
		return err
	}
	form, err := parseAppForm(values)
	if err != nil {
		return err
	}
	if (form.Name != nil && strings.TrimSpace(*form.Name) == "") ||
		(form.Description != nil && strings.TrimSpace(*form.Description) == "") {
		return &store.ValidationError{Field: "name", Message: "name and description must not be empty"}
	}

	apk, icon, err := h.storeFiles(ctx, collected)
	if err != nil {
		return err
	}

	patch := store.Patch{
		Name:        form.Name,
		Description: form.Description,
		Version:     form.Version,
		Category:    form.Category,
		IsFeatured:  form.Featured,
	}
	if apk != nil {
		patch.APKFilename = &apk.Name
		patch.OriginalAPKName = &apk.OriginalName
		patch.FileSize = &apk.Size
	}
	if icon != nil {
		patch.IconFilename = &icon.Name
	}

	app, err := h.store.Update(ctx, id, patch)
	if err != nil {
		return err
	}

	if apk != nil {
		h.removeFile(ctx, blob.KindAPK, before.APKFilename)
	}
	if icon != nil && before.IconFilename != nil {
		h.removeFile(ctx, blob.KindIcon, *before.IconFilename)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "App updated successfully",
		"data":    catalog.View(*app),
	})
}

// Delete removes an app and returns the deleted record
func (h *AppHandler) Delete(c *fiber.Ctx) error {
	id, err := appID(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()

	app, err := h.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	middleware.SetAuditName(c, app.Name)

	h.removeFile(ctx, blob.KindAPK, app.APKFilename)
	if app.IconFilename != nil {
		h.removeFile(ctx, blob.KindIcon, *app.IconFilename)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "App deleted successfully",
		"data":    catalog.View(*app),
	})
}

// Download counts a download and returns the package link
func (h *AppHandler) Download(c *fiber.Ctx) error {
	id, err := appID(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()

	downloads, err := h.store.IncrementDownloads(ctx, id)
	if err != nil {
		return err
	}
	app, err := h.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if h.metrics != nil {
		h.metrics.RecordDownload()
	}

	base := h.baseURL
	if base == "" {
		base = c.BaseURL()
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Download recorded",
		"data": fiber.Map{
			"download_url":      base + catalog.BlobURL(blob.KindAPK, app.APKFilename),
			"original_filename": app.OriginalAPKName,
			"downloads":         downloads,
			"app_name":          app.Name,
		},
	})
}

func (h *AppHandler) storeFiles(ctx context.Context, files blob.Files) (apk, icon *blob.Stored, err error) {
	apk, icon, err = h.intake.StoreFiles(ctx, files)
	if err != nil {
		return nil, nil, err
	}
	if h.metrics != nil {
		if apk != nil {
			h.metrics.RecordUpload(string(blob.KindAPK), apk.Size)
		}
		if icon != nil {
			h.metrics.RecordUpload(string(blob.KindIcon), icon.Size)
		}
	}
	return apk, icon, nil
}

// removeFile deletes a stored blob when file cleanup is enabled. Failures
// are logged and never fail the request.
func (h *AppHandler) removeFile(ctx context.Context, kind blob.Kind, name string) {
	if !h.deleteFiles || name == "" {
		return
	}
	if err := h.blobs.Delete(ctx, kind, name); err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{
			"kind": kind,
			"name": name,
		}).Warn("Failed to delete stored file")
	}
}

// appForm holds the text fields of a create/update form. Nil means absent.
type appForm struct {
	Name        *string `validate:"omitempty,max=255"`
	Description *string `validate:"omitempty,max=10000"`
	Version     *string `validate:"omitempty,max=50"`
	Category    *string `validate:"omitempty,max=50"`
	Featured    *bool
}

func parseAppForm(values map[string][]string) (*appForm, error) {
	form := &appForm{
		Name:        formValue(values, "name"),
		Description: formValue(values, "description"),
		Version:     formValue(values, "version"),
		Category:    formValue(values, "category"),
	}
	if v := formValue(values, "featured"); v != nil {
		featured := parseBool(*v)
		form.Featured = &featured
	}
	if err := validate.Struct(form); err != nil {
		return nil, err
	}
	return form, nil
}

func readForm(c *fiber.Ctx) (map[string][]string, map[string][]*multipart.FileHeader, error) {
	contentType := strings.ToLower(string(c.Request().Header.ContentType()))
	if !strings.HasPrefix(contentType, fiber.MIMEMultipartForm) {
		values := make(map[string][]string)
		c.Request().PostArgs().VisitAll(func(k, v []byte) {
			values[string(k)] = append(values[string(k)], string(v))
		})
		return values, nil, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil, fiber.NewError(fiber.StatusBadRequest, "Invalid multipart form")
	}
	return form.Value, form.File, nil
}

func formValue(values map[string][]string, key string) *string {
	v, ok := values[key]
	if !ok || len(v) == 0 {
		return nil
	}
	s := v[0]
	return &s
}

func appID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, store.ErrNotFound
	}
	return uint(id), nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "on", "yes":
		return true
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
