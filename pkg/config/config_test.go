package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProfile = `
[bus]
interface = virtual
channel = test-channel

[tuning]
queue_depth = 32
n_reset = 5
n_phy = 8
phy_retry_delay_ms = 15
n_dl = 4
data_reg_len = 64
`

func TestLoadParsesBusAndTuningSections(t *testing.T) {
	p, err := Load([]byte(sampleProfile))
	require.NoError(t, err)

	assert.Equal(t, "virtual", p.Interface)
	assert.Equal(t, "test-channel", p.Channel)
	assert.Equal(t, 32, p.QueueDepth)
	assert.Equal(t, 5, p.ResetBudget)
	assert.Equal(t, 8, p.NPHY)
	assert.Equal(t, 15*time.Millisecond, p.PHYRetryDelay)
	assert.Equal(t, 4, p.NDL)
	assert.Equal(t, 64, p.ForcedDataRegLen)
}

func TestLoadDefaultsMissingBusInterfaceToVirtual(t *testing.T) {
	p, err := Load([]byte(""))
	require.NoError(t, err)

	assert.Equal(t, "virtual", p.Interface)
	assert.Equal(t, 0, p.QueueDepth)
	assert.Equal(t, 0, p.ResetBudget)
}

func TestDeviceOptionsOmitsUnsetTuning(t *testing.T) {
	p := Profile{Interface: "virtual"}
	assert.Empty(t, p.DeviceOptions())
}

func TestDeviceOptionsIncludesSetTuning(t *testing.T) {
	p := Profile{Interface: "virtual", QueueDepth: 4, ResetBudget: 2, NDL: 2}
	opts := p.DeviceOptions()
	assert.Len(t, opts, 3)
}
