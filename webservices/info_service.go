package webservices

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/ownmap-mapsource/mapsource"
)

// FontLister lists the fonts available to the rendering engine
type FontLister interface {
	Names() []string
}

func NewInfoService(logger *logpkg.Logger, sources map[string]*mapsource.Source, fonts FontLister) *InfoService {
	ws := &InfoService{logger, sources, fonts, chi.NewRouter()}
	ws.Get("/", ws.handleGet)

	return ws
}

type InfoService struct {
	logger  *logpkg.Logger
	sources map[string]*mapsource.Source
	fonts   FontLister
	chi.Router
}

type extentType struct {
	BBox      [4]float64 `json:"bbox"`
	SRS       string     `json:"srs"`
	Unbounded bool       `json:"unbounded"`
}

type sourceInfoType struct {
	Name              string                           `json:"name"`
	Engine            string                           `json:"engine"`
	Mapfile           string                           `json:"mapfile"`
	Extent            extentType                       `json:"extent"`
	Format            string                           `json:"format"`
	Transparent       bool                             `json:"transparent"`
	SupportsMetaTiles bool                             `json:"supportsMetaTiles"`
	Fonts             mapsource.FontRegistrationResult `json:"fonts"`
}

type infoType struct {
	Sources []*sourceInfoType `json:"sources"`
	Fonts   []string          `json:"fonts"`
}

func (ws *InfoService) handleGet(w http.ResponseWriter, r *http.Request) {
	infos := []*sourceInfoType{}

	for _, source := range ws.sources {
		extent := source.Extent()
		options := source.ImageOptions()

		infos = append(infos, &sourceInfoType{
			Name:    source.Name(),
			Engine:  source.EngineName(),
			Mapfile: source.Mapfile(),
			Extent: extentType{
				BBox:      [4]float64{extent.BBox.Min[0], extent.BBox.Min[1], extent.BBox.Max[0], extent.BBox.Max[1]},
				SRS:       extent.SRS.String(),
				Unbounded: extent.Unbounded,
			},
			Format:            string(options.Format),
			Transparent:       options.Transparent,
			SupportsMetaTiles: source.SupportsMetaTiles(),
			Fonts:             source.FontRegistrationResult(),
		})
	}

	// make deterministic
	sort.Slice(infos, func(a, b int) bool {
		return infos[a].Name < infos[b].Name
	})

	fonts := []string{}
	if ws.fonts != nil {
		fonts = append(fonts, ws.fonts.Names()...)
	}

	render.JSON(w, r, infoType{infos, fonts})
}
