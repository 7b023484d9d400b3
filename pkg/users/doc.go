// Package users manages accounts: self registration, login, and the
// superadmin-only user administration endpoints.
//
// Passwords are stored as bcrypt hashes. The user list is cached under
// users_list for two minutes and dropped on every write. Deleting the last
// superadmin is refused so the installation can always be administered.
package users
