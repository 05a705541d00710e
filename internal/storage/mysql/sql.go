package mysql

// -----------------------------------------------------------------------------
// SCHEMA (idempotent; executed one statement at a time)
// -----------------------------------------------------------------------------

var schemaSQL = []string{`
CREATE TABLE IF NOT EXISTS cabins (
  id               INT AUTO_INCREMENT PRIMARY KEY,
  local_id         VARCHAR(255) NOT NULL,
  name             VARCHAR(255) NOT NULL,
  country          VARCHAR(100),
  region           VARCHAR(100),
  municipality     VARCHAR(100),
  latitude         DOUBLE NOT NULL,
  longitude        DOUBLE NOT NULL,
  altitude         INT DEFAULT 0,
  capacity         INT,
  amenities        TEXT,
  is_free          BOOLEAN DEFAULT true,
  requires_booking BOOLEAN DEFAULT false,
  type             VARCHAR(100),
  email            VARCHAR(255),
  phone            VARCHAR(50),
  website          VARCHAR(255),
  facebook         VARCHAR(255),
  instagram        VARCHAR(255),
  description      TEXT,
  last_updated     DATETIME(6) NOT NULL,
  UNIQUE KEY uq_cabins_local_id (local_id)
) DEFAULT CHARSET = utf8mb4
`, `
CREATE TABLE IF NOT EXISTS cabin_images (
  id             INT AUTO_INCREMENT PRIMARY KEY,
  cabin_local_id VARCHAR(255) NOT NULL,
  name           VARCHAR(255),
  file_name      VARCHAR(255) NOT NULL,
  mime_type      VARCHAR(100),
  original_url   TEXT,
  preview_url    TEXT,
  created_at     DATETIME DEFAULT CURRENT_TIMESTAMP,
  UNIQUE KEY uq_cabin_images_file (cabin_local_id, file_name)
) DEFAULT CHARSET = utf8mb4
`, `
CREATE TABLE IF NOT EXISTS admin_users (
  username   VARCHAR(100) PRIMARY KEY,
  created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
) DEFAULT CHARSET = utf8mb4
`}

// -----------------------------------------------------------------------------
// CABINS
// -----------------------------------------------------------------------------

const cabinColumns = `id, local_id, name, country, region, municipality, latitude, longitude,
  altitude, capacity, amenities, is_free, requires_booking, type, email, phone,
  website, facebook, instagram, description, last_updated`

const listCabinsSQL = `SELECT ` + cabinColumns + ` FROM cabins ORDER BY id`

const getCabinSQL = `SELECT ` + cabinColumns + ` FROM cabins WHERE id = ?`

// First hit in row order; both strategies are evaluated by the same scan.
const findMatchSQL = `
SELECT ` + cabinColumns + `
FROM cabins
WHERE (ABS(latitude - ?) < ? AND ABS(longitude - ?) < ?)
   OR LOWER(name) = LOWER(?)
ORDER BY id
LIMIT 1`

const lockLocalIDSQL = `SELECT local_id FROM cabins WHERE id = ? FOR UPDATE`

const insertCabinSQL = `
INSERT INTO cabins
  (local_id, name, country, region, municipality, latitude, longitude,
   altitude, capacity, amenities, is_free, requires_booking, type, email,
   phone, website, facebook, instagram, description, last_updated)
VALUES
  (:local_id, :name, :country, :region, :municipality, :latitude, :longitude,
   :altitude, :capacity, :amenities, :is_free, :requires_booking, :type, :email,
   :phone, :website, :facebook, :instagram, :description, :last_updated)`

// Every column is written, not only the changed ones.
const updateCabinSQL = `
UPDATE cabins SET
  local_id = :local_id, name = :name, country = :country, region = :region,
  municipality = :municipality, latitude = :latitude, longitude = :longitude,
  altitude = :altitude, capacity = :capacity, amenities = :amenities,
  is_free = :is_free, requires_booking = :requires_booking, type = :type,
  email = :email, phone = :phone, website = :website, facebook = :facebook,
  instagram = :instagram, description = :description, last_updated = :last_updated
WHERE id = :id`

const upsertImportedCabinSQL = insertCabinSQL + `
ON DUPLICATE KEY UPDATE
  name             = VALUES(name),
  country          = VALUES(country),
  region           = VALUES(region),
  municipality     = VALUES(municipality),
  latitude         = VALUES(latitude),
  longitude        = VALUES(longitude),
  altitude         = VALUES(altitude),
  capacity         = VALUES(capacity),
  amenities        = VALUES(amenities),
  is_free          = VALUES(is_free),
  requires_booking = VALUES(requires_booking),
  type             = VALUES(type),
  email            = VALUES(email),
  phone            = VALUES(phone),
  website          = VALUES(website),
  facebook         = VALUES(facebook),
  instagram        = VALUES(instagram),
  description      = VALUES(description),
  last_updated     = VALUES(last_updated)`

const deleteCabinSQL = `DELETE FROM cabins WHERE id = ?`

// -----------------------------------------------------------------------------
// IMAGES
// -----------------------------------------------------------------------------

const imageColumns = `id, cabin_local_id, name, file_name, mime_type, original_url, preview_url`

const listImagesSQL = `SELECT ` + imageColumns + ` FROM cabin_images ORDER BY id`

const imagesByLocalIDSQL = `SELECT ` + imageColumns + ` FROM cabin_images WHERE cabin_local_id = ? ORDER BY id`

const insertImageSQL = `
INSERT INTO cabin_images
  (cabin_local_id, name, file_name, mime_type, original_url, preview_url)
VALUES
  (:cabin_local_id, :name, :file_name, :mime_type, :original_url, :preview_url)`

const upsertImageSQL = insertImageSQL + `
ON DUPLICATE KEY UPDATE
  name         = VALUES(name),
  file_name    = VALUES(file_name),
  mime_type    = VALUES(mime_type),
  original_url = VALUES(original_url),
  preview_url  = VALUES(preview_url)`

// Media re-sent by the directory on re-import is skipped, not duplicated.
const insertImageIgnoreSQL = `
INSERT IGNORE INTO cabin_images
  (cabin_local_id, name, file_name, mime_type, original_url, preview_url)
VALUES
  (:cabin_local_id, :name, :file_name, :mime_type, :original_url, :preview_url)`

const deleteImagesSQL = `DELETE FROM cabin_images WHERE cabin_local_id = ?`

const relinkImagesSQL = `UPDATE cabin_images SET cabin_local_id = ? WHERE cabin_local_id = ?`

// -----------------------------------------------------------------------------
// ADMINS
// -----------------------------------------------------------------------------

const isAdminSQL = `SELECT COUNT(*) FROM admin_users WHERE username = ?`

const insertAdminSQL = `INSERT IGNORE INTO admin_users (username) VALUES (?)`

const deleteAdminSQL = `DELETE FROM admin_users WHERE username = ?`
