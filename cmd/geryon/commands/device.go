package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sandialabs/geryon/mat"
)

var deviceInfoCmd = &cobra.Command{
	Use:   "device",
	Short: "Show device information",
	Long: `Display information about the selected compute device.

Shows the device name, whether it shares physical memory with the host,
and which storage disposition (view or independent) a matrix would get for
common host/device element type pairs.`,
	RunE: runDeviceInfo,
}

func init() {
	rootCmd.AddCommand(deviceInfoCmd)
}

func runDeviceInfo(cmd *cobra.Command, args []string) error {
	dev, err := GetDeviceFromFlag(viper.GetString("device.select"))
	if err != nil {
		return err
	}
	defer dev.Free()

	fmt.Printf("Device: %s\n", dev.Name())
	fmt.Printf("   Kind: %s\n", dev.Kind())
	fmt.Printf("   Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("   Unified memory: %v\n\n", dev.UnifiedMemory())

	if used, total := dev.MemoryUsage(); total > 0 {
		usedGB := float64(used) / (1 << 30)
		totalGB := float64(total) / (1 << 30)
		fmt.Printf("Device memory: %.2f GB / %.2f GB used\n\n", usedGB, totalGB)
	}

	fmt.Println("Storage disposition by host/device element types:")
	unified := dev.UnifiedMemory()
	pairs := []struct {
		host, dev mat.DataType
	}{
		{mat.Float32, mat.Float32},
		{mat.Float64, mat.Float64},
		{mat.Float64, mat.Float32},
		{mat.Int32, mat.Int32},
		{mat.Uint8, mat.Uint8},
		{mat.Int64, mat.Int32},
	}
	for _, p := range pairs {
		d := mat.Choose(p.host, p.dev, unified)
		fmt.Printf("   host %-8s device %-8s -> %s\n", p.host, p.dev, d)
	}

	return nil
}
