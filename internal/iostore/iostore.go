// Package iostore persists sensor readings and their aggregates in a relational database.
package iostore

import (
	"sync"

	"github.com/huangsam/sensorium/internal/contract"
)

// SensorStoreManager owns the process-wide SensorStore instance.
type SensorStoreManager struct {
	sync.RWMutex // Protects the store pointer during initialization
	sensors      contract.SensorStore
}

var _ contract.StoreManager = &SensorStoreManager{} // Compile-time check

// GetSensorStore returns the SensorStore.
func (mgr *SensorStoreManager) GetSensorStore() contract.SensorStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.sensors
}
