package backend

import (
	"context"

	"github.com/amazonlinux/bottlerocket/updatedog/pkg/release"
	dbus "github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
)

const (
	busName    = "com.amazonlinux.updog1"
	objectPath = dbus.ObjectPath("/com/amazonlinux/updog1")

	methodStage       = "com.amazonlinux.updog1.Manager.Stage"
	methodQueryStaged = "com.amazonlinux.updog1.Manager.QueryStaged"
	methodFinalize    = "com.amazonlinux.updog1.Manager.Finalize"
)

// dbusCaller holds one private system-bus connection to the host updater.
// A private connection is used per worker; the shared bus connection would
// interleave replies across callers.
type dbusCaller struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

func dialSystemBus() (caller, error) {
	conn, err := dbus.SystemBusPrivate()
	if err != nil {
		return nil, errors.Wrap(err, "unable to open system bus connection")
	}
	if err := conn.Auth(nil); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "unable to authenticate to system bus")
	}
	if err := conn.Hello(); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "unable to register on system bus")
	}
	return &dbusCaller{
		conn: conn,
		obj:  conn.Object(busName, objectPath),
	}, nil
}

func (c *dbusCaller) stage(ctx context.Context, r release.Release) (release.Release, error) {
	var stagedVersion string
	call := c.obj.CallWithContext(ctx, methodStage, 0, r.Version, r.Payload)
	if err := call.Store(&stagedVersion); err != nil {
		return release.Release{}, errors.Wrapf(err, "stage call for %q failed", r.Version)
	}
	return release.Release{Version: stagedVersion, Payload: r.Payload}, nil
}

func (c *dbusCaller) queryStaged(ctx context.Context) (*release.Release, error) {
	var (
		version string
		present bool
	)
	call := c.obj.CallWithContext(ctx, methodQueryStaged, 0)
	if err := call.Store(&version, &present); err != nil {
		return nil, errors.Wrap(err, "query-staged call failed")
	}
	if !present {
		return nil, nil
	}
	return &release.Release{Version: version}, nil
}

func (c *dbusCaller) finalize(ctx context.Context, r release.Release) (release.Release, error) {
	var finalizedVersion string
	call := c.obj.CallWithContext(ctx, methodFinalize, 0, r.Version)
	if err := call.Store(&finalizedVersion); err != nil {
		return release.Release{}, errors.Wrapf(err, "finalize call for %q failed", r.Version)
	}
	return release.Release{Version: finalizedVersion, Payload: r.Payload}, nil
}

func (c *dbusCaller) close() {
	_ = c.conn.Close()
}
