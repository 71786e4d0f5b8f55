package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/sandialabs/geryon/device"
)

// GetDeviceFromFlag returns the appropriate device based on the --device flag
func GetDeviceFromFlag(deviceFlag string) (device.Device, error) {
	deviceFlag = strings.ToLower(strings.TrimSpace(deviceFlag))

	switch deviceFlag {
	case "auto":
		return device.GetDefaultDevice()

	case "cpu":
		return device.NewCPUDevice(), nil

	case "gpu":
		// Generic GPU: best available for the platform
		if runtime.GOOS == "darwin" {
			return device.NewMetalDevice()
		}
		if runtime.GOOS == "linux" {
			return device.NewCUDADevice()
		}
		return nil, fmt.Errorf("GPU not supported on %s", runtime.GOOS)

	case "metal":
		if runtime.GOOS != "darwin" {
			return nil, fmt.Errorf("Metal is only available on macOS")
		}
		return device.NewMetalDevice()

	case "cuda":
		if runtime.GOOS != "linux" {
			return nil, fmt.Errorf("CUDA is only available on Linux")
		}
		return device.NewCUDADevice()

	default:
		return nil, fmt.Errorf("unknown device: %s\nValid options: auto, cpu, gpu, metal, cuda", deviceFlag)
	}
}
