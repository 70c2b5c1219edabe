//go:build !linux

package escpos

// lineDevices is only implemented for the Linux usblp driver.
func lineDevices() []Detected {
	return nil
}
