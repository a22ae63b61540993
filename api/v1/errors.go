package v1

var (
	// 通用错误
	ErrSuccess             = newError(0, "ok")
	ErrBadRequest          = newError(400, "Bad Request")
	ErrUnauthorized        = newError(401, "Unauthorized")
	ErrNotFound            = newError(404, "Not Found")
	ErrInternalServerError = newError(500, "Internal Server Error")

	// 业务错误
	ErrEmailAlreadyUse      = newError(1001, "The email is already in use.")
	ErrClusterAlreadyExists = newError(1101, "The cluster is already registered.")
	ErrClusterNotFound      = newError(1102, "The cluster does not exist.")
	ErrClusterUnreachable   = newError(1103, "The cluster cannot be reached with the stored credentials.")
	ErrReservedField        = newError(1104, "Cache bookkeeping fields cannot be updated directly.")
	ErrVMNotFound           = newError(1201, "The virtual machine does not exist.")
	ErrJobNotFound          = newError(1301, "The job does not exist.")
	ErrQuotaExceeded        = newError(1401, "The owner quota would be exceeded.")
)
