// Package rbac implements the role and permission model for the news API.
//
// # Permission table
//
// Four built-in roles are mapped onto six permissions by a compiled-in
// table:
//
//	             view  create  edit  delete  manage_users  manage_admins
//	superadmin    T      T      T      T          T              T
//	admin         T      T      T      T          F              F
//	maestro       T      T      F      F          F              F
//	usuario       T      F      F      F          F              F
//
// Unknown role strings resolve to usuario and unknown permissions are
// denied. The table is immutable, so HasPermission and UserPermissions are
// safe for concurrent use without locking.
//
// # Guards
//
// A Guard turns the table into HTTP middleware:
//
//	guard := rbac.NewGuard(logger, metrics)
//	router.Handle("/api/news",
//		guard.RequirePermission(rbac.PermissionCreate)(http.HandlerFunc(h.create)),
//	).Methods("POST")
//
// The caller's role is read from the X-User-Role header; a missing header
// means usuario. When the role lacks the permission the guard writes
//
//	HTTP/1.1 403 Forbidden
//	{"error": "...", "required_permission": "create", "user_role": "usuario"}
//
// and the wrapped handler is never called. The header is not authenticated.
//
// # Role validators
//
// Finer, ownership-aware questions ("may this maestro edit this article?")
// are answered by a RoleValidator, a record of functions per role held in a
// ValidatorRegistry. New roles can be added with Register.
package rbac
