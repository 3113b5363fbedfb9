// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "EchoLens")
	viper.SetDefault("main.log.level", "info")
	viper.SetDefault("main.log.timezone", "Local")
	viper.SetDefault("main.log.file.enabled", false)
	viper.SetDefault("main.log.file.path", "logs/echolens.log")
	viper.SetDefault("main.log.file.level", "info")

	viper.SetDefault("audio.mode", ModeDemo)
	viper.SetDefault("audio.autostart", true)
	viper.SetDefault("audio.device", "")
	viper.SetDefault("audio.samplerate", 16000)
	viper.SetDefault("audio.channels", 2)
	viper.SetDefault("audio.frameduration", time.Second)
	viper.SetDefault("audio.frametimeout", 500*time.Millisecond)
	viper.SetDefault("audio.queueseconds", 5)
	viper.SetDefault("audio.speechthreshold", 20.0)
	viper.SetDefault("audio.alertthreshold", 0.3)
	viper.SetDefault("audio.levelhistory", 20)
	viper.SetDefault("audio.sinkcapacity", 100)
	viper.SetDefault("audio.sinkretain", 50)
	viper.SetDefault("audio.modecooldown", 2*time.Second)
	viper.SetDefault("audio.draingrace", 3*time.Second)
	viper.SetDefault("audio.demointerval", 3*time.Second)

	viper.SetDefault("classifier.enabled", false)
	viper.SetDefault("classifier.modelpath", "models/yamnet.tflite")
	viper.SetDefault("classifier.labelspath", "models/yamnet_labels.txt")
	viper.SetDefault("classifier.threads", 0)
	viper.SetDefault("classifier.threshold", 0.1)
	viper.SetDefault("classifier.topk", 5)

	viper.SetDefault("speech.enabled", false)
	viper.SetDefault("speech.apikey", "")
	viper.SetDefault("speech.endpoint", "")
	viper.SetDefault("speech.language", "en-US")
	viper.SetDefault("speech.timeout", 10*time.Second)

	viper.SetDefault("gemini.enabled", true)
	viper.SetDefault("gemini.apikey", "")
	viper.SetDefault("gemini.baseurl", "https://generativelanguage.googleapis.com/v1beta/openai/")
	viper.SetDefault("gemini.model", "gemini-1.5-pro")
	viper.SetDefault("gemini.temperature", 0.7)
	viper.SetDefault("gemini.timeout", 15*time.Second)
	viper.SetDefault("gemini.ratelimit", 2.0)
	viper.SetDefault("gemini.cachettl", 10*time.Minute)

	viper.SetDefault("preferences.transcriptionenabled", true)
	viper.SetDefault("preferences.sounddetectionenabled", true)
	viper.SetDefault("preferences.emotiondetectionenabled", true)
	viper.SetDefault("preferences.directionalaudio", true)
	viper.SetDefault("preferences.notificationvolume", 70)
	viper.SetDefault("preferences.distancereporting", true)
	viper.SetDefault("preferences.importantsounds", []string{"doorbell", "alarm", "phone", "name_called"})

	viper.SetDefault("output.sqlite.enabled", false)
	viper.SetDefault("output.sqlite.path", "echolens.db")

	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "echolens")
	viper.SetDefault("output.mysql.password", "secret")
	viper.SetDefault("output.mysql.database", "echolens")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")

	viper.SetDefault("output.retention.enabled", true)
	viper.SetDefault("output.retention.schedule", "@daily")
	viper.SetDefault("output.retention.maxage", "30d")

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.topic", "echolens")
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.clientid", "")
	viper.SetDefault("mqtt.retain", false)

	viper.SetDefault("notification.enabled", false)
	viper.SetDefault("notification.urls", []string{})
	viper.SetDefault("notification.cooldown", time.Minute)

	viper.SetDefault("robot.enabled", false)
	viper.SetDefault("robot.actuator", "log")

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.debug", false)
	viper.SetDefault("webserver.port", "5000")
	viper.SetDefault("webserver.alloworigins", []string{"*"})

	viper.SetDefault("metrics.enabled", true)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.environment", "production")
	viper.SetDefault("sentry.samplerate", 1.0)
}
