package memstore

import (
	"testing"

	"github.com/AustinSDK/Authincation-service/store"
	"github.com/AustinSDK/Authincation-service/store/storetests"
)

func TestConformance(t *testing.T) {
	storetests.Run(t, func(t *testing.T) store.Store {
		return New()
	})
}
