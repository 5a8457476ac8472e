package geo

import (
	"math"
	"testing"

	"github.com/dukerupert/roomies/internal/model"
)

func TestDistanceMeters(t *testing.T) {
	tests := []struct {
		name string
		a, b model.Location
		want float64
		tol  float64
	}{
		{"same point", model.Location{Latitude: 40.7, Longitude: -74}, model.Location{Latitude: 40.7, Longitude: -74}, 0, 0.001},
		{"one degree of latitude", model.Location{Latitude: 0, Longitude: 0}, model.Location{Latitude: 1, Longitude: 0}, 111195, 5},
		{"paris to london", model.Location{Latitude: 48.8566, Longitude: 2.3522}, model.Location{Latitude: 51.5074, Longitude: -0.1278}, 343500, 1500},
		{"antipodes", model.Location{Latitude: 0, Longitude: 0}, model.Location{Latitude: 0, Longitude: 180}, math.Pi * earthRadiusMeters, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceMeters(tt.a, tt.b)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("distance = %.1f, want %.1f ± %.1f", got, tt.want, tt.tol)
			}
		})
	}
}

func TestWithin(t *testing.T) {
	home := model.Location{Latitude: 37.7749, Longitude: -122.4194}
	// About 55 metres north.
	near := model.Location{Latitude: 37.7754, Longitude: -122.4194}
	far := model.Location{Latitude: 37.7849, Longitude: -122.4194}

	if !Within(home, near, 100) {
		t.Error("expected nearby point within 100m")
	}
	if Within(home, far, 100) {
		t.Error("expected distant point outside 100m")
	}
}

func TestValid(t *testing.T) {
	if !Valid(model.Location{Latitude: -90, Longitude: 180}) {
		t.Error("expected boundary to be valid")
	}
	if Valid(model.Location{Latitude: 91, Longitude: 0}) {
		t.Error("expected latitude 91 to be invalid")
	}
	if Valid(model.Location{Latitude: math.NaN(), Longitude: 0}) {
		t.Error("expected NaN to be invalid")
	}
}
