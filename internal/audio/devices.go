package audio

import (
	"encoding/hex"
	"fmt"
	"runtime"
	"strings"

	"github.com/gen2brain/malgo"

	"github.com/echolens-ai/echolens/internal/logger"
)

// DeviceInfo describes a capture device.
type DeviceInfo struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	ID        string `json:"id"`
	IsDefault bool   `json:"is_default"`
}

// ListDevices returns the available capture devices.
func ListDevices() ([]DeviceInfo, error) {
	ctx, err := initMalgoContext()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to get devices: %w", err)
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for i := range infos {
		decodedID, err := hexToASCII(infos[i].ID.String())
		if err != nil {
			GetLogger().Debug("skipping device with undecodable id", logger.Int("index", i), logger.Error(err))
			continue
		}
		devices = append(devices, DeviceInfo{
			Index:     i,
			Name:      infos[i].Name(),
			ID:        decodedID,
			IsDefault: infos[i].IsDefault == 1,
		})
	}
	return devices, nil
}

// captureBackends returns the preferred backend for the platform, nil lets miniaudio choose.
func captureBackends() []malgo.Backend {
	switch runtime.GOOS {
	case "linux":
		return []malgo.Backend{malgo.BackendAlsa}
	case "windows":
		return []malgo.Backend{malgo.BackendWasapi}
	case "darwin":
		return []malgo.Backend{malgo.BackendCoreaudio}
	default:
		return nil
	}
}

func initMalgoContext() (*malgo.AllocatedContext, error) {
	log := GetLogger()
	ctx, err := malgo.InitContext(captureBackends(), malgo.ContextConfig{}, func(message string) {
		log.Trace("miniaudio", logger.String("message", strings.TrimSpace(message)))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}
	return ctx, nil
}

// matchesDevice reports whether a device matches the configured device string.
// An empty setting selects the system default.
func matchesDevice(decodedID string, info *malgo.DeviceInfo, setting string) bool {
	if setting == "" || setting == "default" || setting == "sysdefault" {
		return info.IsDefault == 1
	}
	return decodedID == setting || strings.Contains(info.Name(), setting)
}

// hexToASCII converts a hexadecimal string to an ASCII string.
func hexToASCII(hexStr string) (string, error) {
	bytes, err := hex.DecodeString(hexStr)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// malgoDevice is a started miniaudio capture device with its context.
type malgoDevice struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	name   string
}

func (d *malgoDevice) Start() error { return d.device.Start() }
func (d *malgoDevice) Stop() error  { return d.device.Stop() }
func (d *malgoDevice) Name() string { return d.name }

func (d *malgoDevice) Close() {
	d.device.Uninit()
	_ = d.ctx.Uninit()
	d.ctx.Free()
}

// openMalgoDevice opens the configured capture device as 16-bit PCM.
func openMalgoDevice(cfg LiveConfig, onData func(pcm []byte)) (captureDevice, error) {
	ctx, err := initMalgoContext()
	if err != nil {
		return nil, err
	}
	fail := func(err error) (captureDevice, error) {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return fail(fmt.Errorf("failed to get devices: %w", err))
	}

	name := "default"
	found := false
	for i := range infos {
		decodedID, err := hexToASCII(infos[i].ID.String())
		if err != nil {
			continue
		}
		if matchesDevice(decodedID, &infos[i], cfg.Device) {
			deviceConfig.Capture.DeviceID = infos[i].ID.Pointer()
			name = infos[i].Name()
			found = true
			break
		}
	}
	// the default device is used when no default flag is reported
	if !found && cfg.Device != "" && cfg.Device != "default" && cfg.Device != "sysdefault" {
		return fail(fmt.Errorf("no capture device matches %q", cfg.Device))
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			onData(input)
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize device: %w", err))
	}

	return &malgoDevice{ctx: ctx, device: device, name: name}, nil
}
