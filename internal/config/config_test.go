package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gyro_config.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := Load(writeConfig(t, "# nothing but a comment\n\n"))
	require.NoError(t, err)

	assert.Equal(t, "1", cfg.I2CBus)
	assert.Equal(t, uint16(0x68), cfg.DeviceAddr)
	assert.Equal(t, "aether-log-gyro-", cfg.LogPrefix)
	assert.Equal(t, ".", cfg.LogDir)
	assert.Empty(t, cfg.MQTTBroker)
	assert.Equal(t, 100, cfg.PublishInterval)
	assert.False(t, cfg.UseMock)
}

func TestLoadValues(t *testing.T) {
	t.Parallel()
	cfg, err := Load(writeConfig(t, `
I2C_BUS = 0
DEVICE_ADDR=0x69
USE_MOCK=true
LOG_DIR=/var/log/gyro
MQTT_BROKER=tcp://localhost:1883
TOPIC_ORIENTATION=aether/gyro
PUBLISH_INTERVAL=250
METRICS_PORT=0
REGISTER_DEBUG_ALLOWED_RANGES=0x19-0x1C, 0x6B
`))
	require.NoError(t, err)

	assert.Equal(t, "0", cfg.I2CBus)
	assert.Equal(t, uint16(0x69), cfg.DeviceAddr)
	assert.True(t, cfg.UseMock)
	assert.Equal(t, "/var/log/gyro", cfg.LogDir)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.Equal(t, "aether/gyro", cfg.TopicOrientation)
	assert.Equal(t, 250, cfg.PublishInterval)
	assert.Equal(t, 0, cfg.MetricsPort)

	assert.True(t, cfg.RegisterWritable(0x19))
	assert.True(t, cfg.RegisterWritable(0x1C))
	assert.True(t, cfg.RegisterWritable(0x6B))
	assert.False(t, cfg.RegisterWritable(0x1D))
	assert.False(t, cfg.RegisterWritable(0x75))
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"missing separator": "I2C_BUS\n",
		"unknown key":       "SAMPLE_RATE=100\n",
		"bad address":       "DEVICE_ADDR=zz\n",
		"address too wide":  "DEVICE_ADDR=0x100\n",
		"zero interval":     "PUBLISH_INTERVAL=0\n",
		"bad bool":          "USE_MOCK=maybe\n",
		"port out of range": "WEB_SERVER_PORT=70000\n",
		"reversed range":    "REGISTER_DEBUG_ALLOWED_RANGES=0x1C-0x19\n",
		"broker, no topic":  "MQTT_BROKER=tcp://x:1883\nTOPIC_ORIENTATION=\n",
	}
	for name, body := range cases {
		body := body
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}

func TestReadOnlyByDefault(t *testing.T) {
	t.Parallel()
	assert.False(t, Default().RegisterWritable(0x6B))
}
