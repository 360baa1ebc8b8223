package handlers

import (
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/brawlstats/statsagg/internal/export"
)

// GetManifest returns the manifest of the published run.
func (h *Handler) GetManifest(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, r, export.ManifestFile)
}

// GetPairStats serves pair_stats/<variant>/<map>.json.
func (h *Handler) GetPairStats(variant string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mapID, ok := h.intParam(w, r, "mapId")
		if !ok {
			return
		}
		h.serveFile(w, r, export.PairPath(variant, mapID))
	}
}

// GetTrioStats serves trio_stats/<map>/<rank>.json.
func (h *Handler) GetTrioStats(w http.ResponseWriter, r *http.Request) {
	mapID, ok := h.intParam(w, r, "mapId")
	if !ok {
		return
	}
	rankID, ok := h.intParam(w, r, "rankId")
	if !ok {
		return
	}
	h.serveFile(w, r, export.TrioPath(mapID, rankID))
}

// GetThreeVsThreeStats serves three_vs_three_stats/<map>.json.
func (h *Handler) GetThreeVsThreeStats(w http.ResponseWriter, r *http.Request) {
	mapID, ok := h.intParam(w, r, "mapId")
	if !ok {
		return
	}
	h.serveFile(w, r, export.ThreeVsThreePath(mapID))
}

// GetFile serves any published JSON file by its path below the output root.
func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	clean := path.Clean(name)
	if name == "" || clean != name || strings.HasPrefix(clean, "../") || clean == ".." || path.Ext(clean) != ".json" {
		h.errorResponse(w, http.StatusBadRequest, "Invalid statistics path")
		return
	}
	h.serveFile(w, r, clean)
}

func (h *Handler) intParam(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	raw := chi.URLParam(r, key)
	if err := h.validator.Var(raw, "required,numeric"); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid "+key)
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		h.errorResponse(w, http.StatusBadRequest, "Invalid "+key)
		return 0, false
	}
	return v, true
}

// serveFile opens name inside the output root. Opening through os.Root keeps
// symlinks from escaping it.
func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request, name string) {
	f, err := os.OpenInRoot(h.root, name)
	if err != nil {
		h.fileError(w, name, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.fileError(w, name, err)
		return
	}
	if info.IsDir() {
		h.errorResponse(w, http.StatusNotFound, "Statistics not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=60")
	http.ServeContent(w, r, path.Base(name), info.ModTime(), f)
}
