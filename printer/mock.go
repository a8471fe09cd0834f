package printer

import "sync"

// MockDevice records raster and feed calls. Used by tests and the CLI
// preview instead of real transport.
type MockDevice struct {
	mu      sync.Mutex
	rasters []MockRaster
	feeds   []int
	Err     error // returned from every call when set
}

type MockRaster struct {
	W, H int
	Pix  []byte
}

func NewMockDevice() *MockDevice { return &MockDevice{} }

func (self *MockDevice) Raster(width, height int, pix []byte) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.Err != nil {
		return self.Err
	}
	cp := make([]byte, len(pix))
	copy(cp, pix)
	self.rasters = append(self.rasters, MockRaster{W: width, H: height, Pix: cp})
	return nil
}

func (self *MockDevice) Feed(lines int) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.Err != nil {
		return self.Err
	}
	self.feeds = append(self.feeds, lines)
	return nil
}

func (self *MockDevice) Rasters() []MockRaster {
	self.mu.Lock()
	defer self.mu.Unlock()
	return append([]MockRaster{}, self.rasters...)
}

func (self *MockDevice) Feeds() []int {
	self.mu.Lock()
	defer self.mu.Unlock()
	return append([]int{}, self.feeds...)
}

func (self *MockDevice) Last() (MockRaster, bool) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if len(self.rasters) == 0 {
		return MockRaster{}, false
	}
	return self.rasters[len(self.rasters)-1], true
}
