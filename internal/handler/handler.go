package handler

import (
	"inkgen/internal/identity"
	"inkgen/internal/service"
)

// Package-level services, wired once at startup.
var (
	Identity    *identity.Client
	Downloads   *service.DownloadService
	Generations *service.GenerationService
)

// Init wires the handler package with its services.
func Init(id *identity.Client, downloads *service.DownloadService, generations *service.GenerationService) {
	Identity = id
	Downloads = downloads
	Generations = generations
}
