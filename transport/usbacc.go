// Copyright 2026 The ioio Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gousb"
	"github.com/hannesa2/ioio/ioio"
)

var _ ioio.Transport = (*USBAccessory)(nil)

// Android accessory protocol control requests (AOAv1), issued to the
// device's default vendor-ID before it re-enumerates as an accessory.
const (
	aoaGetProtocol   = 51
	aoaSendString    = 52
	aoaStart         = 53
	aoaVendorID      = 0x18D1 // Google
	aoaAccessoryPID1 = 0x2D00
	aoaAccessoryPID2 = 0x2D01
)

const (
	aoaStringManufacturer = 0
	aoaStringModel        = 1
	aoaStringDescription  = 2
	aoaStringVersion      = 3
	aoaStringURI          = 4
	aoaStringSerial       = 5
)

// USBAccessory is an ioio.Transport over the Android Open Accessory
// protocol: a desktop (or anything running gousb) puts a phone/board into
// accessory mode and talks to its accessory bulk endpoints directly,
// mirroring the role an Android host's USB accessory API plays on-device.
type USBAccessory struct {
	vendorID, productID uint16
	manufacturer, model, description string

	ctx    *gousb.Context
	dev    *gousb.Device
	cfg    *gousb.Config
	intf   *gousb.Interface
	epIn   *gousb.InEndpoint
	epOut  *gousb.OutEndpoint
}

// NewUSBAccessory returns a transport that finds the first USB device
// matching vendorID/productID, switches it into accessory mode, and opens
// its bulk endpoints. manufacturer/model/description identify the host
// application to the peer as AOA requires.
func NewUSBAccessory(vendorID, productID uint16, manufacturer, model, description string) *USBAccessory {
	return &USBAccessory{
		vendorID: vendorID, productID: productID,
		manufacturer: manufacturer, model: model, description: description,
	}
}

func (u *USBAccessory) Connect(ctx context.Context) error {
	return connectWithContext(ctx, u.connect)
}

func (u *USBAccessory) connect() error {
	gctx := gousb.NewContext()
	dev, err := gctx.OpenDeviceWithVIDPID(gousb.ID(u.vendorID), gousb.ID(u.productID))
	if err != nil || dev == nil {
		gctx.Close()
		return wrapDial("usb-accessory", fmt.Errorf("open device %04x:%04x: %w", u.vendorID, u.productID, err))
	}

	if err := u.negotiateAccessory(dev); err != nil {
		dev.Close()
		gctx.Close()
		return wrapDial("usb-accessory", err)
	}

	// The device re-enumerates under the Google accessory VID/PID once
	// AOA_START is sent; re-open it there.
	dev.Close()
	accDev, err := reopenAsAccessory(gctx)
	if err != nil {
		gctx.Close()
		return wrapDial("usb-accessory", err)
	}

	cfg, err := accDev.Config(1)
	if err != nil {
		accDev.Close()
		gctx.Close()
		return wrapDial("usb-accessory", fmt.Errorf("set config: %w", err))
	}
	intf, err := cfg.Interface(0, 0)
	if err != nil {
		cfg.Close()
		accDev.Close()
		gctx.Close()
		return wrapDial("usb-accessory", fmt.Errorf("claim interface: %w", err))
	}
	epIn, err := intf.InEndpoint(1)
	if err != nil {
		intf.Close()
		cfg.Close()
		accDev.Close()
		gctx.Close()
		return wrapDial("usb-accessory", fmt.Errorf("open in endpoint: %w", err))
	}
	epOut, err := intf.OutEndpoint(2)
	if err != nil {
		intf.Close()
		cfg.Close()
		accDev.Close()
		gctx.Close()
		return wrapDial("usb-accessory", fmt.Errorf("open out endpoint: %w", err))
	}

	u.ctx, u.dev, u.cfg, u.intf, u.epIn, u.epOut = gctx, accDev, cfg, intf, epIn, epOut
	return nil
}

// negotiateAccessory runs the AOA handshake's control transfers: query the
// protocol version, send the three identifying strings, then AOA_START.
func (u *USBAccessory) negotiateAccessory(dev *gousb.Device) error {
	proto := make([]byte, 2)
	if _, err := dev.Control(gousb.ControlIn|gousb.ControlVendor|gousb.ControlDevice, aoaGetProtocol, 0, 0, proto); err != nil {
		return fmt.Errorf("get protocol: %w", err)
	}
	strings := []struct {
		index int
		value string
	}{
		{aoaStringManufacturer, u.manufacturer},
		{aoaStringModel, u.model},
		{aoaStringDescription, u.description},
	}
	for _, s := range strings {
		if s.value == "" {
			continue
		}
		payload := append([]byte(s.value), 0)
		if _, err := dev.Control(gousb.ControlOut|gousb.ControlVendor|gousb.ControlDevice, aoaSendString, 0, uint16(s.index), payload); err != nil {
			return fmt.Errorf("send string %d: %w", s.index, err)
		}
	}
	if _, err := dev.Control(gousb.ControlOut|gousb.ControlVendor|gousb.ControlDevice, aoaStart, 0, 0, nil); err != nil {
		return fmt.Errorf("start accessory mode: %w", err)
	}
	return nil
}

// reopenAsAccessory finds the device under either accessory product id the
// phone may re-enumerate as, retrying briefly since the re-enumeration
// races this call.
func reopenAsAccessory(ctx *gousb.Context) (*gousb.Device, error) {
	for attempt := 0; attempt < 20; attempt++ {
		for _, pid := range []gousb.ID{aoaAccessoryPID1, aoaAccessoryPID2} {
			dev, err := ctx.OpenDeviceWithVIDPID(aoaVendorID, pid)
			if err == nil && dev != nil {
				return dev, nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return nil, fmt.Errorf("accessory device did not reappear as %04x:{%04x,%04x}", aoaVendorID, aoaAccessoryPID1, aoaAccessoryPID2)
}

func (u *USBAccessory) Read(p []byte) (int, error)  { return u.epIn.Read(p) }
func (u *USBAccessory) Write(p []byte) (int, error) { return u.epOut.Write(p) }

func (u *USBAccessory) Close() error {
	u.intf.Close()
	u.cfg.Close()
	u.dev.Close()
	return u.ctx.Close()
}

// CanClose is true: the host opened the USB handle and can tear it down.
func (u *USBAccessory) CanClose() bool { return true }
