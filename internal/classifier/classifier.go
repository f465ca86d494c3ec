// package classifier assigns a genre to a track from its audio features.
//
// Two implementations exist: a local rule-based classifier and a client for a
// hosted model server. Both produce labels from the same canonical genre set.
package classifier

import (
	"context"
	"strings"

	"github.com/desertthunder/genrify/internal/models"
)

// Genre is a canonical genre label used to name playlists.
type Genre string

const (
	GenreHipHop     Genre = "Hip-Hop"
	GenrePop        Genre = "Pop"
	GenreFolk       Genre = "Folk"
	GenreRock       Genre = "Rock"
	GenreClassical  Genre = "Classical"
	GenreIndie      Genre = "Indie"
	GenreCountry    Genre = "Country"
	GenreLatin      Genre = "Latin"
	GenreJazz       Genre = "Jazz"
	GenreElectronic Genre = "Electronic"
	GenreMetal      Genre = "Metal"
	GenreChill      Genre = "Chill"
)

// canonical maps lowercase labels (including model-server spellings) to
// display genres.
var canonical = map[string]Genre{
	"hip-hop":    GenreHipHop,
	"hip hop":    GenreHipHop,
	"hiphop":     GenreHipHop,
	"rap":        GenreHipHop,
	"pop":        GenrePop,
	"folk":       GenreFolk,
	"rock":       GenreRock,
	"classical":  GenreClassical,
	"indie":      GenreIndie,
	"country":    GenreCountry,
	"latin":      GenreLatin,
	"jazz":       GenreJazz,
	"electronic": GenreElectronic,
	"metal":      GenreMetal,
	"chill":      GenreChill,
}

// CanonicalGenre normalizes an arbitrary genre label to its canonical display
// form. Unknown labels are title-cased as-is so a new model label still yields
// a usable playlist name.
func CanonicalGenre(label string) Genre {
	key := strings.ToLower(strings.TrimSpace(label))
	if genre, ok := canonical[key]; ok {
		return genre
	}
	if key == "" {
		return GenreIndie
	}
	return Genre(strings.ToUpper(key[:1]) + key[1:])
}

// Classifier predicts a genre for a track from its audio features.
type Classifier interface {
	// Classify returns the genre for the given track.
	Classify(ctx context.Context, track models.Track, features models.AudioFeatures) (Genre, error)

	// Name returns the classifier implementation name.
	Name() string
}

// RuleClassifier predicts genres with fixed thresholds over a handful of
// audio features. It needs no network or model artifacts.
type RuleClassifier struct{}

// NewRuleClassifier creates the threshold-based classifier.
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

func (c *RuleClassifier) Name() string { return "rules" }

// Classify applies the threshold rules in order. Indie is the fallthrough
// bucket, so every track classifies successfully.
func (c *RuleClassifier) Classify(ctx context.Context, track models.Track, f models.AudioFeatures) (Genre, error) {
	switch {
	case f.Speechiness > 0.4:
		return GenreHipHop, nil
	case f.Energy > 0.7 && f.Danceability > 0.6:
		return GenrePop, nil
	case f.Acousticness > 0.7 && f.Valence > 0.5:
		return GenreFolk, nil
	case f.Energy > 0.6 && f.Valence < 0.4:
		return GenreRock, nil
	case f.Energy < 0.3 && f.Acousticness > 0.6:
		return GenreClassical, nil
	default:
		return GenreIndie, nil
	}
}
