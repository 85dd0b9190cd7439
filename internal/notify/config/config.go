package config

type Config struct {
	SMTPAddr     string
	SMTPUser     string
	SMTPPassword string
	From         string
}
