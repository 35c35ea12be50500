// Package selection tracks which files of a project are selected for
// detection and keeps one map graphic per selected file.
package selection

import (
	"sort"
	"sync"

	"github.com/facette/natsort"
	"github.com/google/uuid"

	"github.com/p-blackswan/geoai-console/internal/mapsession"
	"github.com/p-blackswan/geoai-console/internal/models"
)

// ViewSource returns the map view graphics are drawn on, or nil when no
// map is shown.
type ViewSource interface {
	MapView() mapsession.View
}

// File is a snapshot of one image.
type File struct {
	Name       string
	Path       string
	PathTIF    string
	Selected   bool
	HasFeature bool
}

// Group is a snapshot of one panorama point-cloud group.
type Group struct {
	Title    string
	PCDPath  string
	Images   []File
	Selected bool
}

type file struct {
	models.ProjectFile
	feature *mapsession.Graphic
	graphic *mapsession.Graphic
}

type group struct {
	title    string
	pcdPath  string
	images   []*file
	selected bool
}

// Store is the selection state of one project. A file has a graphic on the
// map exactly when it is selected.
type Store struct {
	mu     sync.Mutex
	views  ViewSource
	images []*file
	groups []*group
}

// New creates an empty store drawing on views.
func New(views ViewSource) *Store {
	return &Store{views: views}
}

func (s *Store) layer() mapsession.GraphicsLayer {
	if s.views == nil {
		return nil
	}
	v := s.views.MapView()
	if v == nil {
		return nil
	}
	return v.Graphics()
}

// Reset replaces the project's files, clearing any selection. Images and
// group members are ordered by natural name order.
func (s *Store) Reset(images []models.ProjectFile, groups []models.ProjectFileGroup) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearGraphicsLocked()

	s.images = make([]*file, 0, len(images))
	for _, img := range images {
		s.images = append(s.images, &file{ProjectFile: img})
	}
	sortFiles(s.images)

	s.groups = make([]*group, 0, len(groups))
	for _, g := range groups {
		ng := &group{title: g.Title, pcdPath: g.PCDPath}
		for _, img := range g.Images {
			ng.images = append(ng.images, &file{ProjectFile: img})
		}
		sortFiles(ng.images)
		s.groups = append(s.groups, ng)
	}
}

func sortFiles(fs []*file) {
	sort.SliceStable(fs, func(i, j int) bool {
		return natsort.Compare(fs[i].Name, fs[j].Name)
	})
}

// clearGraphicsLocked removes every graphic this store drew.
func (s *Store) clearGraphicsLocked() {
	var drawn []mapsession.Graphic
	for _, f := range s.images {
		if f.graphic != nil {
			drawn = append(drawn, *f.graphic)
			f.graphic = nil
		}
	}
	for _, g := range s.groups {
		for _, f := range g.images {
			if f.graphic != nil {
				drawn = append(drawn, *f.graphic)
				f.graphic = nil
			}
		}
		g.selected = false
	}
	if len(drawn) > 0 {
		if l := s.layer(); l != nil {
			l.RemoveMany(drawn)
		}
	}
}

func newGraphic(f *file) *mapsession.Graphic {
	g := &mapsession.Graphic{
		ID:         uuid.NewString(),
		Attributes: map[string]any{"name": f.Name, "path": f.Path, "symbol": "selected-file"},
	}
	if f.feature != nil {
		g.Geometry = f.feature.Geometry
	}
	return g
}

// ToggleImage flips the image with path. It reports whether the image
// exists.
func (s *Store) ToggleImage(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.images {
		if f.Path == path {
			s.toggleImageLocked(f)
			return true
		}
	}
	return false
}

func (s *Store) toggleImageLocked(f *file) {
	l := s.layer()
	if f.graphic != nil {
		if l != nil {
			l.Remove(*f.graphic)
		}
		f.graphic = nil
		return
	}
	g := newGraphic(f)
	if l != nil {
		l.Add(*g)
	}
	f.graphic = g
}

// ToggleGroup flips every image of the group with title in one batch. It
// reports whether the group exists. Empty groups are left unchanged.
func (s *Store) ToggleGroup(title string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range s.groups {
		if g.title == title {
			s.toggleGroupLocked(g)
			return true
		}
	}
	return false
}

func (s *Store) toggleGroupLocked(g *group) {
	if len(g.images) == 0 {
		return
	}
	l := s.layer()
	wasSelected := g.images[0].graphic != nil

	if wasSelected {
		drawn := make([]mapsession.Graphic, 0, len(g.images))
		for _, f := range g.images {
			if f.graphic != nil {
				drawn = append(drawn, *f.graphic)
			}
		}
		if l != nil {
			l.RemoveMany(drawn)
		}
		for _, f := range g.images {
			f.graphic = nil
		}
	} else {
		fresh := make([]*mapsession.Graphic, len(g.images))
		batch := make([]mapsession.Graphic, len(g.images))
		for i, f := range g.images {
			fresh[i] = newGraphic(f)
			batch[i] = *fresh[i]
		}
		if l != nil {
			l.AddMany(batch)
		}
		for i, f := range g.images {
			f.graphic = fresh[i]
		}
	}
	g.selected = !wasSelected
}

// ToggleAll sets every image and group to state, toggling only those that
// differ.
func (s *Store) ToggleAll(state bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.images {
		if (f.graphic != nil) != state {
			s.toggleImageLocked(f)
		}
	}
	for _, g := range s.groups {
		if g.selected != state && len(g.images) > 0 {
			s.toggleGroupLocked(g)
		}
	}
}

func (s *Store) counts() (members, selected int) {
	for _, f := range s.images {
		members++
		if f.graphic != nil {
			selected++
		}
	}
	for _, g := range s.groups {
		members++
		if g.selected {
			selected++
		}
	}
	return members, selected
}

// SomeSelected reports whether at least one image or group is selected.
func (s *Store) SomeSelected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, selected := s.counts()
	return selected > 0
}

// AllSelected reports whether every image and group is selected. An empty
// store is not all-selected.
func (s *Store) AllSelected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, selected := s.counts()
	return members > 0 && selected == members
}

// BindImageFeatures attaches map features to images by name.
func (s *Store) BindImageFeatures(features []mapsession.Graphic) {
	byName := make(map[string]*mapsession.Graphic, len(features))
	for i := range features {
		name := features[i].Name()
		if _, dup := byName[name]; !dup {
			byName[name] = &features[i]
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.images {
		f.feature = byName[f.Name]
	}
}

// BindGroupFeatures attaches map features to group images by group title
// and image name.
func (s *Store) BindGroupFeatures(features []mapsession.Graphic) {
	type key struct{ title, name string }
	byKey := make(map[key]*mapsession.Graphic, len(features))
	for i := range features {
		title, _ := features[i].Attributes["title"].(string)
		k := key{title, features[i].Name()}
		if _, dup := byKey[k]; !dup {
			byKey[k] = &features[i]
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.groups {
		for _, f := range g.images {
			f.feature = byKey[key{g.title, f.Name}]
		}
	}
}

// Images returns a snapshot of the images.
func (s *Store) Images() []File {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.images)
}

// Groups returns a snapshot of the point-cloud groups.
func (s *Store) Groups() []Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, Group{
			Title:    g.title,
			PCDPath:  g.pcdPath,
			Images:   snapshot(g.images),
			Selected: g.selected,
		})
	}
	return out
}

func snapshot(fs []*file) []File {
	out := make([]File, 0, len(fs))
	for _, f := range fs {
		out = append(out, File{
			Name:       f.Name,
			Path:       f.Path,
			PathTIF:    f.PathTIF,
			Selected:   f.graphic != nil,
			HasFeature: f.feature != nil,
		})
	}
	return out
}

// SelectedTIFPaths returns the GeoTIFF paths of selected images that
// have one.
func (s *Store) SelectedTIFPaths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []string{}
	for _, f := range s.images {
		if f.graphic != nil && f.PathTIF != "" {
			out = append(out, f.PathTIF)
		}
	}
	return out
}

// SelectedGroupPaths returns the image paths of every selected group.
func (s *Store) SelectedGroupPaths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []string{}
	for _, g := range s.groups {
		if !g.selected {
			continue
		}
		for _, f := range g.images {
			out = append(out, f.Path)
		}
	}
	return out
}
