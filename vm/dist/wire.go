package dist

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/tliron/commonlog"
)

// cborEncMode uses canonical mode so that equal images encode to equal
// bytes.
var cborEncMode cbor.EncMode

// cborDecMode raises the array limit to fit large programs.
var cborDecMode cbor.DecMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("dist: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em

	dm, err := cbor.DecOptions{MaxArrayElements: 1 << 24}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("dist: failed to create CBOR dec mode: %v", err))
	}
	cborDecMode = dm
}

func logger() commonlog.Logger {
	return commonlog.GetLogger("pvm.dist")
}

// Marshal serializes an Image to CBOR bytes.
func Marshal(img *Image) ([]byte, error) {
	return cborEncMode.Marshal(img)
}

// Unmarshal deserializes an Image from CBOR bytes and verifies it.
func Unmarshal(data []byte) (*Image, error) {
	var img Image
	if err := cborDecMode.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("dist: unmarshal image: %w", err)
	}
	if err := img.Verify(); err != nil {
		return nil, err
	}
	return &img, nil
}

// Save writes img to path.
func Save(path string, img *Image) error {
	data, err := Marshal(img)
	if err != nil {
		return fmt.Errorf("dist: marshal image %q: %w", img.Name, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("dist: %w", err)
	}
	logger().Infof("wrote image %q to %s: %d instructions, %d bytes", img.Name, path, len(img.Code), len(data))
	return nil
}

// Load reads and verifies the image at path.
func Load(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dist: %w", err)
	}
	img, err := Unmarshal(data)
	if err != nil {
		logger().Errorf("%s: %v", path, err)
		return nil, err
	}
	logger().Debugf("loaded image %q from %s: hash %x", img.Name, path, img.Hash[:8])
	return img, nil
}

// LoadChecked loads the image at path and checks its capabilities
// against policy.
func LoadChecked(path string, policy *CapabilityPolicy) (*Image, error) {
	img, err := Load(path)
	if err != nil {
		return nil, err
	}
	if policy != nil {
		if err := policy.Check(img.CapabilityManifest()); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return img, nil
}
