package controllers_test

import (
	"net/http"
	"testing"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/config"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateClearsZone(t *testing.T) {
	a := setup(t)
	f := a.farm()
	crop := a.create("/api/crops", f.tok, gin.H{"name": "Maize", "zone_id": f.zone})

	tests := []struct {
		name string
		path string
	}{
		{"device", "/api/devices/" + f.sensor},
		{"crop", "/api/crops/" + crop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zoneOf := func() interface{} {
				var out struct {
					ZoneID *string `json:"zone_id"`
				}
				w := a.do(http.MethodGet, tt.path, f.tok, nil)
				require.Equal(t, http.StatusOK, w.Code, w.Body.String())
				decode(t, w, &out)
				if out.ZoneID == nil {
					return nil
				}
				return *out.ZoneID
			}

			w := a.do(http.MethodPut, tt.path, f.tok, gin.H{"name": "Renamed"})
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, f.zone, zoneOf(), "absent zone_id keeps the zone")

			w = a.do(http.MethodPut, tt.path, f.tok, gin.H{"zone_id": nil})
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Nil(t, zoneOf())

			w = a.do(http.MethodPut, tt.path, f.tok, gin.H{"zone_id": f.zone})
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, f.zone, zoneOf())
		})
	}

	var d models.Device
	require.NoError(t, config.DB.First(&d, "id = ?", f.sensor).Error)
	assert.Equal(t, "Renamed", d.Name)
}

func TestUpdateRejectsMalformedZone(t *testing.T) {
	a := setup(t)
	f := a.farm()
	w := a.do(http.MethodPut, "/api/devices/"+f.sensor, f.tok, gin.H{"zone_id": "not-a-uuid"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
