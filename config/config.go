package config

// yaml 파일 파싱을 위한 패키지와 파일 입출력 패키지 임포트
import (
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3" // YAML 파싱용
)

// 기본 설정값
const (
	DefaultHost        = "127.0.0.1"
	DefaultPort uint16 = 8080
	DefaultPath        = "data/constants.csv"
)

// 전체 설정을 담는 최상위 구조체
type Settings struct {
	Server   ServerConfig   `yaml:"server"`   // 서버 관련 설정
	Database DatabaseConfig `yaml:"database"` // 데이터셋 관련 설정
	Kafka    KafkaConfig    `yaml:"kafka"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Log      LogConfig      `yaml:"log"`
}

// 서버 관련 설정 구조체
type ServerConfig struct {
	Host         string        `yaml:"host" validate:"required"`
	Port         uint16        `yaml:"port" validate:"required"`
	DrainTimeout time.Duration `yaml:"drain_timeout" validate:"gte=0"`
}

// 데이터셋 관련 설정 구조체
type DatabaseConfig struct {
	Path             string `yaml:"path" validate:"required"` // CSV 데이터셋 경로
	ConnectionString string `yaml:"connection_string"`        // 설정되면 PostgreSQL 에서 상수를 읽음
}

// Kafka 관련 설정 구조체
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" validate:"dive,hostname_port"`
	Topic   string   `yaml:"topic"`
}

// MQTT 관련 설정 구조체
type MQTTConfig struct {
	Broker       string `yaml:"broker"`
	ClientID     string `yaml:"client_id" validate:"required_with=Broker"`
	ControlTopic string `yaml:"control_topic" validate:"required_with=Broker"`
}

// 로그 관련 설정 구조체
type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=console json"`
}

// Address returns the listen address built from host and port.
func (s Settings) Address() string {
	return net.JoinHostPort(s.Server.Host, strconv.Itoa(int(s.Server.Port)))
}

// Origin tells where a Settings value came from.
type Origin int

const (
	OriginFile Origin = iota
	OriginDefaults
)

func (o Origin) String() string {
	if o == OriginDefaults {
		return "defaults"
	}
	return "file"
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Defaults returns the settings used when the configuration file cannot be loaded.
func Defaults() Settings {
	return Settings{
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Database: DatabaseConfig{
			Path: DefaultPath,
		},
	}
}

// 설정 파일을 읽어 Settings 구조체로 반환하는 함수
// filename: 읽을 설정 파일 경로
func Load(filename string) (*Settings, error) {
	file, err := os.Open(filename) // 파일 열기
	if err != nil {
		return nil, err // 파일 열기 실패 시 에러 반환
	}
	defer file.Close() // 함수 종료 시 파일 닫기

	data, err := io.ReadAll(file) // 파일 전체 내용 읽기
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}

	if err := validate.Struct(settings); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", filename, err)
	}

	return &settings, nil
}

// LoadOrDefault loads filename and falls back to Defaults on any failure.
// The fallback is logged as a warning; it never fails.
func LoadOrDefault(filename string, log *zap.Logger) (Settings, Origin) {
	settings, err := Load(filename)
	if err != nil {
		log.Warn("Error loading configuration", zap.String("path", filename), zap.Error(err))
		log.Warn("Using default configuration")
		return Defaults(), OriginDefaults
	}
	return *settings, OriginFile
}
