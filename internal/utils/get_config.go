package utils

import (
	"log"
	"os"

	"gopkg.in/yaml.v2"
)

type Config struct {
	// Server configuration
	AppPort string `yaml:"APP_PORT"`
	AppURL  string `yaml:"APP_URL"`

	// Database configuration
	DBUser     string `yaml:"DB_USER"`
	DBName     string `yaml:"DB_NAME"`
	DBPassword string `yaml:"DB_PASSWORD"`
	DBPort     string `yaml:"DB_PORT"`
	DBHost     string `yaml:"DB_HOST"`

	// JWT key
	JWTSecret string `yaml:"JWT_SECRET"`

	// Mailing configuration
	SMTPHost         string `yaml:"SMTP_HOST"`
	SMTPPort         string `yaml:"SMTP_PORT"`
	SMTPSenderName   string `yaml:"SMTP_SENDER_NAME"`
	SMTPAuthEmail    string `yaml:"SMTP_AUTH_EMAIL"`
	SMTPAuthPassword string `yaml:"SMTP_AUTH_PASSWORD"`

	// AWS S3 configuration
	AWSS3Bucket  string `yaml:"AWS_S3_BUCKET"`
	AWSS3Region  string `yaml:"AWS_S3_REGION"`
	AWSAccessKey string `yaml:"AWS_ACCESS_KEY"`
	AWSSecretKey string `yaml:"AWS_SECRET_KEY"`
}

var config Config

func LoadConfig() {
	file, err := os.ReadFile("config.yaml")
	if err != nil {
		log.Printf("Error reading YAML file: %s\n", err)
		return
	}

	err = yaml.Unmarshal(file, &config)
	if err != nil {
		log.Printf("Error parsing YAML file: %s\n", err)
		return
	}

	// Environment variables win over config.yaml so container deployments
	// can override single keys without rewriting the file.
	overlayEnv()

	os.Setenv("JWT_SECRET", config.JWTSecret)
}

func overlayEnv() {
	setIfPresent := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setIfPresent(&config.AppPort, "APP_PORT")
	setIfPresent(&config.AppURL, "APP_URL")
	setIfPresent(&config.DBUser, "DB_USER")
	setIfPresent(&config.DBName, "DB_NAME")
	setIfPresent(&config.DBPassword, "DB_PASSWORD")
	setIfPresent(&config.DBPort, "DB_PORT")
	setIfPresent(&config.DBHost, "DB_HOST")
	setIfPresent(&config.JWTSecret, "JWT_SECRET")
	setIfPresent(&config.SMTPHost, "SMTP_HOST")
	setIfPresent(&config.SMTPPort, "SMTP_PORT")
	setIfPresent(&config.SMTPSenderName, "SMTP_SENDER_NAME")
	setIfPresent(&config.SMTPAuthEmail, "SMTP_AUTH_EMAIL")
	setIfPresent(&config.SMTPAuthPassword, "SMTP_AUTH_PASSWORD")
	setIfPresent(&config.AWSS3Bucket, "AWS_S3_BUCKET")
	setIfPresent(&config.AWSS3Region, "AWS_S3_REGION")
	setIfPresent(&config.AWSAccessKey, "AWS_ACCESS_KEY")
	setIfPresent(&config.AWSSecretKey, "AWS_SECRET_KEY")
}

func GetConfig(key string) string {
	switch key {
	case "APP_PORT":
		return config.AppPort
	case "APP_URL":
		return config.AppURL
	case "DB_USER":
		return config.DBUser
	case "DB_NAME":
		return config.DBName
	case "DB_PASSWORD":
		return config.DBPassword
	case "DB_PORT":
		return config.DBPort
	case "DB_HOST":
		return config.DBHost
	case "JWT_SECRET":
		return config.JWTSecret
	case "SMTP_HOST":
		return config.SMTPHost
	case "SMTP_PORT":
		return config.SMTPPort
	case "SMTP_SENDER_NAME":
		return config.SMTPSenderName
	case "SMTP_AUTH_EMAIL":
		return config.SMTPAuthEmail
	case "SMTP_AUTH_PASSWORD":
		return config.SMTPAuthPassword
	case "AWS_S3_BUCKET":
		return config.AWSS3Bucket
	case "AWS_S3_REGION":
		return config.AWSS3Region
	case "AWS_ACCESS_KEY":
		return config.AWSAccessKey
	case "AWS_SECRET_KEY":
		return config.AWSSecretKey
	default:
		return ""
	}
}
