package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dfOutput = `Filesystem         1B-blocks        Used    Available Capacity Mounted on
/dev/root         31154274304  5000000000  24843571200      17% /
devtmpfs            867012608           0    867012608       0% /dev
tmpfs               999997440           0    999997440       0% /dev/shm
/dev/mmcblk0p1      268148736    52260864    215887872      20% /boot/firmware
/dev/sda1         1000202039296 200000000000 800202039296     20% /media/pi/My Book
`

func TestParseDF(t *testing.T) {
	devices := parseDF(dfOutput)
	require.Len(t, devices, 3)

	assert.Equal(t, "/dev/root", devices[0].Name)
	assert.Equal(t, "/", devices[0].MountPoint)
	assert.Equal(t, uint64(31154274304), devices[0].SizeTotal)
	assert.Equal(t, uint64(24843571200), devices[0].SizeFree)

	assert.Equal(t, "/boot/firmware", devices[1].MountPoint)
	assert.Equal(t, "/media/pi/My Book", devices[2].MountPoint)

	ids := map[string]bool{}
	for _, d := range devices {
		assert.NotEmpty(t, d.ID)
		ids[d.ID] = true
	}
	assert.Len(t, ids, 3)
}

func TestParseDFIgnoresGarbage(t *testing.T) {
	assert.Empty(t, parseDF(""))
	assert.Empty(t, parseDF("no columns here\n/dev/sda1 1 2\n"))
}

func TestAppendExternalDrives(t *testing.T) {
	devices := parseDF(dfOutput)

	lsblk := "mmcblk0\nmmcblk0p1 /boot/firmware\nsda\nsda1 /media/pi/My\\x20Book\nsdb1 /media/pi/BACKUP\nsdc1\n"
	devices = appendExternalDrives(devices, lsblk)

	require.Len(t, devices, 4)
	added := devices[3]
	assert.Equal(t, "External Drive (sdb1)", added.Name)
	assert.Equal(t, "/media/pi/BACKUP", added.MountPoint)
	assert.Zero(t, added.SizeTotal)
	assert.Zero(t, added.SizeFree)
}
