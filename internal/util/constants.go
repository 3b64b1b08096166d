package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// 文件上传相关常量
const (
	MimeImage = "image/"
	MimeWebP  = "image/webp"
)

const ThumbnailFolder = "assignments/thumbnails"
