package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"jobboard/internal/auth"
	"jobboard/internal/config"
	"jobboard/internal/database"
)

func main() {
	var (
		email    = flag.String("email", "", "账号邮箱（必填）")
		fullName = flag.String("fullname", "", "姓名（可选，默认取邮箱前缀）")
		phone    = flag.String("phone", "", "手机号（可选）")
		role     = flag.String("role", database.RoleRecruiter, "角色：recruiter 或 student")
		driver   = flag.String("db-driver", "", "数据库驱动 postgres|sqlite（可选，默认读 DATABASE_DRIVER）")
		sqlite   = flag.String("db-sqlite-path", "", "SQLite 文件路径（可选，默认读 DATABASE_SQLITE_PATH）")
		dbHost   = flag.String("db-host", "", "数据库 Host（可选，默认读 DATABASE_HOST）")
		dbPort   = flag.Int("db-port", 0, "数据库 Port（可选，默认读 DATABASE_PORT）")
		dbName   = flag.String("db-name", "", "数据库名（可选，默认读 POSTGRES_DB）")
		dbUser   = flag.String("db-user", "", "数据库用户（可选，默认读 POSTGRES_USER）")
		dbPass   = flag.String("db-password", "", "数据库密码（可选，默认读 POSTGRES_PASSWORD）")
		sslMode  = flag.String("db-sslmode", "", "数据库 SSLMODE（可选，默认读 DATABASE_SSLMODE）")
	)
	flag.Parse()

	addr := strings.ToLower(strings.TrimSpace(*email))
	if addr == "" {
		log.Fatal("missing required flag: --email")
	}
	if *role != database.RoleRecruiter && *role != database.RoleStudent {
		log.Fatalf("invalid --role %q, want recruiter or student", *role)
	}
	name := strings.TrimSpace(*fullName)
	if name == "" {
		name, _, _ = strings.Cut(addr, "@")
	}

	dbCfg, err := loadDatabaseConfig(*driver, *sqlite, *dbHost, *dbPort, *dbName, *dbUser, *dbPass, *sslMode)
	if err != nil {
		log.Fatalf("load database config: %v", err)
	}

	db, err := database.InitDatabase(dbCfg)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	var existing database.User
	switch err := db.Where("email = ?", addr).Take(&existing).Error; {
	case err == nil:
		log.Fatalf("user %q already exists", addr)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		log.Fatalf("query user: %v", err)
	}

	password, err := auth.GeneratePassword(18)
	if err != nil {
		log.Fatalf("generate password: %v", err)
	}
	hashed, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	user := database.User{
		FullName:     name,
		Email:        addr,
		PhoneNumber:  strings.TrimSpace(*phone),
		PasswordHash: hashed,
		Role:         *role,
	}
	if err := db.Create(&user).Error; err != nil {
		log.Fatalf("create user: %v", err)
	}

	fmt.Printf("已创建 %s 账号：\n", user.Role)
	fmt.Printf("邮箱: %s\n", user.Email)
	fmt.Printf("初始密码: %s\n", password)
	fmt.Printf("提示：该密码仅显示一次，请妥善保存。\n")
}

func loadDatabaseConfig(driver, sqlitePath, host string, port int, name, user, password, sslmode string) (config.DatabaseConfig, error) {
	driver = firstSet(driver, os.Getenv("DATABASE_DRIVER"), "postgres")
	if driver == "sqlite" {
		return config.DatabaseConfig{
			Driver:     driver,
			SQLitePath: firstSet(sqlitePath, os.Getenv("DATABASE_SQLITE_PATH"), "data/jobboard.db"),
		}, nil
	}
	if driver != "postgres" {
		return config.DatabaseConfig{}, fmt.Errorf("unsupported database driver %q", driver)
	}

	if port <= 0 {
		if env := strings.TrimSpace(os.Getenv("DATABASE_PORT")); env != "" {
			p, err := strconv.Atoi(env)
			if err != nil {
				return config.DatabaseConfig{}, fmt.Errorf("parse DATABASE_PORT: %w", err)
			}
			port = p
		}
	}
	if port <= 0 {
		port = 5432
	}

	cfg := config.DatabaseConfig{
		Driver:   driver,
		Host:     firstSet(host, os.Getenv("DATABASE_HOST"), "localhost"),
		Port:     port,
		Name:     firstSet(name, os.Getenv("POSTGRES_DB")),
		User:     firstSet(user, os.Getenv("POSTGRES_USER")),
		Password: firstSet(password, os.Getenv("POSTGRES_PASSWORD")),
		SSLMode:  firstSet(sslmode, os.Getenv("DATABASE_SSLMODE"), "disable"),
	}
	if cfg.Name == "" {
		return config.DatabaseConfig{}, errors.New("database name is required (POSTGRES_DB)")
	}
	if cfg.User == "" {
		return config.DatabaseConfig{}, errors.New("database user is required (POSTGRES_USER)")
	}
	if cfg.Password == "" {
		return config.DatabaseConfig{}, errors.New("database password is required (POSTGRES_PASSWORD)")
	}
	return cfg, nil
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
