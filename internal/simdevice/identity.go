package simdevice

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// buildFirmwareVersion is overridden at build time via
// -ldflags "-X .../simdevice.buildFirmwareVersion=1.2.3"; it stands in for
// the running image's version string a real firmware build embeds.
var buildFirmwareVersion = "0.0.0-dev"

// FileIdentity supplies the device id and firmware version for a simulated
// device. The device id is generated once and cached on disk so repeated
// runs address the same hawkBit target; the firmware version comes from
// buildFirmwareVersion unless overridden.
type FileIdentity struct {
	idPath  string
	version string
}

// NewFileIdentity opens (creating if necessary) the cached device id at
// idPath. An empty version falls back to buildFirmwareVersion.
func NewFileIdentity(idPath, version string) (*FileIdentity, error) {
	if version == "" {
		version = buildFirmwareVersion
	}
	if _, err := os.Stat(idPath); os.IsNotExist(err) {
		id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
		if err := os.WriteFile(idPath, []byte(id), 0o644); err != nil {
			return nil, fmt.Errorf("simdevice: write device id: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("simdevice: stat device id file: %w", err)
	}
	return &FileIdentity{idPath: idPath, version: version}, nil
}

// DeviceID returns the cached device id.
func (i *FileIdentity) DeviceID() (string, error) {
	b, err := os.ReadFile(i.idPath)
	if err != nil {
		return "", fmt.Errorf("simdevice: read device id: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// FirmwareVersion returns the configured/compiled-in firmware version.
func (i *FileIdentity) FirmwareVersion() (string, error) {
	return i.version, nil
}
