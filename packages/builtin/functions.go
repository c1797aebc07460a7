package builtin

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Func is one template function. Arguments arrive as unquoted strings;
// the return value keeps its natural type so single-token templates can
// stay typed.
type Func func(args []string) (any, error)

// Registry holds the functions callable from templates.
type Registry struct {
	funcs map[string]Func
}

func NewRegistry() *Registry {
	r := &Registry{funcs: make(map[string]Func)}
	r.registerDefaults()
	return r
}

// Register adds or replaces a function. Custom functions must be
// side-effect free with respect to the variable scope.
func (r *Registry) Register(name string, fn Func) {
	r.funcs[name] = fn
}

// Has reports whether a function is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.funcs[name]
	return ok
}

// Call invokes a registered function by name.
func (r *Registry) Call(name string, args []string) (any, error) {
	fn, ok := r.funcs[name]
	if !ok {
		return nil, fmt.Errorf("unknown function: %s", name)
	}
	return fn(args)
}

func (r *Registry) registerDefaults() {
	r.funcs["now"] = funcNow
	r.funcs["timestamp"] = funcTimestamp
	r.funcs["timestampMs"] = funcTimestampMs
	r.funcs["date"] = funcDate
	r.funcs["uuid"] = funcUUID
	r.funcs["random"] = funcRandom
	r.funcs["randomString"] = funcRandomString
	r.funcs["randomEmail"] = funcRandomEmail
	r.funcs["base64"] = funcBase64
	r.funcs["base64Decode"] = funcBase64Decode
	r.funcs["md5"] = funcMD5
	r.funcs["sha256"] = funcSHA256
	r.funcs["urlEncode"] = funcURLEncode
	r.funcs["urlDecode"] = funcURLDecode
	r.funcs["env"] = funcEnv
}

func intArg(args []string, idx, fallback int) (int, error) {
	if len(args) <= idx {
		return fallback, nil
	}
	v, err := strconv.Atoi(args[idx])
	if err != nil {
		return 0, fmt.Errorf("argument %q is not an integer", args[idx])
	}
	return v, nil
}

func oneArg(args []string, fn string) (string, error) {
	if len(args) < 1 {
		return "", fmt.Errorf("%s() requires one argument", fn)
	}
	return args[0], nil
}

func funcNow(_ []string) (any, error) {
	return time.Now().UTC().Format(time.RFC3339), nil
}

func funcTimestamp(_ []string) (any, error) {
	return time.Now().Unix(), nil
}

func funcTimestampMs(_ []string) (any, error) {
	return time.Now().UnixMilli(), nil
}

func funcDate(args []string) (any, error) {
	layout := "2006-01-02"
	if len(args) >= 1 {
		layout = args[0]
	}
	return time.Now().UTC().Format(layout), nil
}

func funcUUID(_ []string) (any, error) {
	return uuid.New().String(), nil
}

func funcRandom(args []string) (any, error) {
	min, err := intArg(args, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("random(): %w", err)
	}
	max, err := intArg(args, 1, 100)
	if err != nil {
		return nil, fmt.Errorf("random(): %w", err)
	}
	if max < min {
		return nil, fmt.Errorf("random(): max %d is less than min %d", max, min)
	}
	return rand.Intn(max-min+1) + min, nil
}

func funcRandomString(args []string) (any, error) {
	length, err := intArg(args, 0, 16)
	if err != nil {
		return nil, fmt.Errorf("randomString(): %w", err)
	}
	return randomString(length, alphanumeric), nil
}

func funcRandomEmail(_ []string) (any, error) {
	user := randomString(8, "abcdefghijklmnopqrstuvwxyz")
	domain := randomString(6, "abcdefghijklmnopqrstuvwxyz")
	return fmt.Sprintf("%s@%s.com", user, domain), nil
}

func funcBase64(args []string) (any, error) {
	v, err := oneArg(args, "base64")
	if err != nil {
		return nil, err
	}
	return base64.StdEncoding.EncodeToString([]byte(v)), nil
}

func funcBase64Decode(args []string) (any, error) {
	v, err := oneArg(args, "base64Decode")
	if err != nil {
		return nil, err
	}
	decoded, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("base64Decode(): %w", err)
	}
	return string(decoded), nil
}

func funcMD5(args []string) (any, error) {
	v, err := oneArg(args, "md5")
	if err != nil {
		return nil, err
	}
	sum := md5.Sum([]byte(v))
	return hex.EncodeToString(sum[:]), nil
}

func funcSHA256(args []string) (any, error) {
	v, err := oneArg(args, "sha256")
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:]), nil
}

func funcURLEncode(args []string) (any, error) {
	v, err := oneArg(args, "urlEncode")
	if err != nil {
		return nil, err
	}
	return url.QueryEscape(v), nil
}

func funcURLDecode(args []string) (any, error) {
	v, err := oneArg(args, "urlDecode")
	if err != nil {
		return nil, err
	}
	decoded, err := url.QueryUnescape(v)
	if err != nil {
		return nil, fmt.Errorf("urlDecode(): %w", err)
	}
	return decoded, nil
}

func funcEnv(args []string) (any, error) {
	name, err := oneArg(args, "env")
	if err != nil {
		return nil, err
	}
	return os.Getenv(name), nil
}

func randomString(length int, charset string) string {
	result := make([]byte, length)
	for i := range result {
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
