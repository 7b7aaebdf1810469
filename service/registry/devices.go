package registry

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

const (
	dfCommand    = "df -P -B1"
	lsblkCommand = "lsblk -rno NAME,MOUNTPOINT"
)

var externalDrive = regexp.MustCompile(`^sd[a-z]`)

// StorageDevice is a mounted filesystem of a connection.
type StorageDevice struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MountPoint string `json:"mount_point"`
	SizeTotal  uint64 `json:"size_total"`
	SizeFree   uint64 `json:"size_free"`
}

// probeDevices lists the block device filesystems mounted on the remote host.
// df is required; lsblk only adds drives df did not report.
func (r *Registry) probeDevices(client *ssh.Client) ([]StorageDevice, error) {
	out, err := runCommand(client, dfCommand)
	if err != nil {
		return nil, errors.Wrap(err, "storage devices")
	}
	devices := parseDF(out)

	out, err = runCommand(client, lsblkCommand)
	if err != nil {
		r.log.Warn().Err(err).Msg("lsblk failed, external drives without df entry are not listed")
		return devices, nil
	}
	return appendExternalDrives(devices, out), nil
}

func runCommand(client *ssh.Client, cmd string) (string, error) {
	session, err := client.NewSession()
	if err != nil {
		return "", errors.Wrap(err, "failed to create session")
	}
	defer session.Close()

	out, err := session.Output(cmd)
	if err != nil {
		return "", errors.Wrapf(err, "%s", cmd)
	}
	return string(out), nil
}

// parseDF reads POSIX df output with byte sized blocks and keeps the
// filesystems backed by a /dev node.
func parseDF(out string) []StorageDevice {
	var devices []StorageDevice
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 6 || !strings.HasPrefix(fields[0], "/dev/") {
			continue
		}
		total, _ := strconv.ParseUint(fields[1], 10, 64)
		free, _ := strconv.ParseUint(fields[3], 10, 64)

		devices = append(devices, StorageDevice{
			ID:         uuid.NewString(),
			Name:       fields[0],
			MountPoint: strings.Join(fields[5:], " "),
			SizeTotal:  total,
			SizeFree:   free,
		})
	}
	return devices
}

// appendExternalDrives adds mounted sdX partitions from raw lsblk output that
// are not mounted at an already known mount point. Their sizes are unknown.
func appendExternalDrives(devices []StorageDevice, out string) []StorageDevice {
	known := make(map[string]bool, len(devices))
	for _, d := range devices {
		known[d.MountPoint] = true
	}

	for _, line := range strings.Split(out, "\n") {
		name, mountPoint, ok := strings.Cut(strings.TrimSpace(line), " ")
		if !ok || !externalDrive.MatchString(name) {
			continue
		}
		mountPoint = strings.ReplaceAll(strings.TrimSpace(mountPoint), `\x20`, " ")
		if !strings.HasPrefix(mountPoint, "/") || known[mountPoint] {
			continue
		}
		known[mountPoint] = true

		devices = append(devices, StorageDevice{
			ID:         uuid.NewString(),
			Name:       "External Drive (" + name + ")",
			MountPoint: mountPoint,
		})
	}
	return devices
}
