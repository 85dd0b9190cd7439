package config

type Config struct {
	DBDsn         string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}
