package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes a sign-up password with bcrypt. The cost comes from
// BCRYPT_COST so deployments can tune it; values outside bcrypt's valid
// range fall back to the library default rather than failing sign-up.
func HashPassword(plain string, cost int) (string, error) {
    if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
        cost = bcrypt.DefaultCost
    }
    b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
    if err != nil {
        return "", err
    }
    return string(b), nil
}

// VerifyPassword compares a stored hash against a sign-in attempt in
// constant time. It returns false for any mismatch or malformed hash; the
// caller answers "invalid credentials" either way.
func VerifyPassword(hash, plain string) bool {
    return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
