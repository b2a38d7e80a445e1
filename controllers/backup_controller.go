package controllers

import (
	"net/http"
	"path/filepath"
	"strings"

	"patrimoine/services"

	"github.com/gin-gonic/gin"
)

// BackupController exposes encrypted backup management. Restoring replaces
// every table, so these routes are meant for the single-owner deployment
// this application targets.
type BackupController struct {
	backups *services.BackupService
}

type RestoreRequest struct {
	File string `json:"file" binding:"required"`
}

func NewBackupController(backups *services.BackupService) *BackupController {
	return &BackupController{backups: backups}
}

func (ctl *BackupController) Create(c *gin.Context) {
	path, err := ctl.backups.Create()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"file": filepath.Base(path)})
}

func (ctl *BackupController) List(c *gin.Context) {
	paths, err := ctl.backups.List()
	if err != nil {
		respondError(c, err)
		return
	}
	files := make([]string, 0, len(paths))
	for _, p := range paths {
		files = append(files, filepath.Base(p))
	}
	c.JSON(http.StatusOK, gin.H{"backups": files})
}

func (ctl *BackupController) Restore(c *gin.Context) {
	var req RestoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	// The file name comes from the client: strip any path component so it
	// cannot escape the backup directory.
	name := filepath.Base(req.File)
	if name == "." || strings.Contains(name, "..") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid backup file name"})
		return
	}

	paths, err := ctl.backups.List()
	if err != nil {
		respondError(c, err)
		return
	}
	var target string
	for _, p := range paths {
		if filepath.Base(p) == name {
			target = p
			break
		}
	}
	if target == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Backup not found"})
		return
	}

	if err := ctl.backups.Restore(target); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Sauvegarde restaurée"})
}

func (ctl *BackupController) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/backups", ctl.Create)
	rg.GET("/backups", ctl.List)
	rg.POST("/backups/restore", ctl.Restore)
}
