package logic

import (
	"slices"
	"time"

	"github.com/brawlstats/statsagg/internal/export"
	"github.com/brawlstats/statsagg/internal/models"
)

// renderer wraps aggregated entries into documents and lays them out as files.
// Partitioned kinds get a file for every known map (and rank tier for trios), even
// when no battle was played there, plus an index.json.
type renderer struct {
	generatedAt time.Time
	confidence  float64
	mapIDs      []int
	rankIDs     []int
}

func newRenderer(generatedAt time.Time, confidence float64, ref *models.Reference, minRank int) *renderer {
	r := &renderer{generatedAt: generatedAt.UTC(), confidence: confidence}
	if ref != nil {
		r.mapIDs = ref.MapIDs()
		for id := range ref.Ranks {
			if id >= minRank {
				r.rankIDs = append(r.rankIDs, id)
			}
		}
	}
	slices.Sort(r.mapIDs)
	slices.Sort(r.rankIDs)
	return r
}

func document[T any](r *renderer, confidence float64, entries []T) models.Document[T] {
	if entries == nil {
		entries = []T{}
	}
	return models.Document[T]{GeneratedAt: r.generatedAt, ConfidenceLevel: confidence, Entries: entries}
}

// file renders entries into a single document.
func file[T any](r *renderer, kind, path string, confidence float64, entries []T) export.Artifact {
	return export.Artifact{Kind: kind, Path: path, Entries: len(entries), Value: document(r, confidence, entries)}
}

// mapsOf returns the known maps plus any map that only appears in the data.
func mapsOf[V any](known []int, byMap map[int]V) []int {
	ids := slices.Clone(known)
	for id := range byMap {
		if !slices.Contains(known, id) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

func (r *renderer) index(kind, dir string, entries []models.IndexEntry) export.Artifact {
	return file(r, kind, export.IndexPath(dir), 0, entries)
}

func (r *renderer) pairs(kind, variant string, byMap map[int][]models.PairEntry) []export.Artifact {
	var out []export.Artifact
	var idx []models.IndexEntry
	for _, mapID := range mapsOf(r.mapIDs, byMap) {
		entries := byMap[mapID]
		path := export.PairPath(variant, mapID)
		out = append(out, file(r, kind, path, r.confidence, entries))
		idx = append(idx, models.IndexEntry{MapID: mapID, Path: path, Entries: len(entries)})
	}
	return append(out, r.index(kind, export.PairDir(variant), idx))
}

func (r *renderer) trios(byMapRank map[int]map[int][]models.TrioEntry) []export.Artifact {
	var out []export.Artifact
	var idx []models.IndexEntry
	for _, mapID := range mapsOf(r.mapIDs, byMapRank) {
		byRank := byMapRank[mapID]
		for _, rankID := range mapsOf(r.rankIDs, byRank) {
			entries := byRank[rankID]
			path := export.TrioPath(mapID, rankID)
			out = append(out, file(r, export.KindTrio, path, r.confidence, entries))
			idx = append(idx, models.IndexEntry{MapID: mapID, RankID: &rankID, Path: path, Entries: len(entries)})
		}
	}
	return append(out, r.index(export.KindTrio, export.TrioDir(), idx))
}

func (r *renderer) teams(byMap map[int][]models.TeamMatchupEntry) []export.Artifact {
	var out []export.Artifact
	var idx []models.IndexEntry
	for _, mapID := range mapsOf(r.mapIDs, byMap) {
		entries := byMap[mapID]
		path := export.ThreeVsThreePath(mapID)
		out = append(out, file(r, export.KindThreeVsThree, path, r.confidence, entries))
		idx = append(idx, models.IndexEntry{MapID: mapID, Path: path, Entries: len(entries)})
	}
	return append(out, r.index(export.KindThreeVsThree, export.ThreeVsThreeDir(), idx))
}
