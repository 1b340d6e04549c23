package store

// All timestamps are unix seconds, UTC. Busy_until 0 means "not computed".
const schema = `
CREATE TABLE IF NOT EXISTS vehicle_categories (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    seats INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS vehicles (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    branch_id INTEGER NOT NULL,
    category_id INTEGER NOT NULL REFERENCES vehicle_categories(id),
    plate TEXT NOT NULL DEFAULT '',
    model TEXT NOT NULL DEFAULT '',
    capacity INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'AVAILABLE'
);
CREATE TABLE IF NOT EXISTS drivers (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    branch_id INTEGER NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    license_class TEXT NOT NULL DEFAULT 'B',
    license_expiry INTEGER,
    priority_level INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'AVAILABLE'
);
CREATE TABLE IF NOT EXISTS driver_ratings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    driver_id INTEGER NOT NULL REFERENCES drivers(id),
    rating REAL NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS driver_day_off (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    driver_id INTEGER NOT NULL REFERENCES drivers(id),
    start_day INTEGER NOT NULL,
    end_day INTEGER NOT NULL,
    status TEXT NOT NULL DEFAULT 'APPROVED'
);
CREATE TABLE IF NOT EXISTS bookings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    branch_id INTEGER NOT NULL,
    customer_id INTEGER NOT NULL,
    hire_type TEXT NOT NULL DEFAULT 'ONE_WAY',
    status TEXT NOT NULL DEFAULT 'PENDING'
);
CREATE TABLE IF NOT EXISTS booking_vehicle_details (
    booking_id INTEGER NOT NULL REFERENCES bookings(id),
    category_id INTEGER NOT NULL REFERENCES vehicle_categories(id),
    quantity INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (booking_id, category_id)
);
CREATE TABLE IF NOT EXISTS trips (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    booking_id INTEGER NOT NULL REFERENCES bookings(id),
    start_time INTEGER NOT NULL,
    end_time INTEGER,
    busy_until INTEGER NOT NULL DEFAULT 0,
    start_loc TEXT NOT NULL DEFAULT '',
    end_loc TEXT NOT NULL DEFAULT '',
    distance_km REAL NOT NULL DEFAULT 0,
    use_highway INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'SCHEDULED'
);
CREATE TABLE IF NOT EXISTS trip_drivers (
    trip_id INTEGER NOT NULL REFERENCES trips(id),
    driver_id INTEGER NOT NULL REFERENCES drivers(id),
    role TEXT NOT NULL DEFAULT 'MAIN',
    note TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (trip_id, driver_id)
);
CREATE TABLE IF NOT EXISTS trip_vehicles (
    trip_id INTEGER NOT NULL REFERENCES trips(id),
    vehicle_id INTEGER NOT NULL REFERENCES vehicles(id),
    note TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (trip_id, vehicle_id)
);
CREATE TABLE IF NOT EXISTS trip_assignment_history (
    id TEXT PRIMARY KEY,
    trip_id INTEGER NOT NULL REFERENCES trips(id),
    action TEXT NOT NULL,
    actor TEXT NOT NULL DEFAULT '',
    driver_before INTEGER,
    driver_after INTEGER,
    vehicle_before INTEGER,
    vehicle_after INTEGER,
    note TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trips_booking ON trips(booking_id);
CREATE INDEX IF NOT EXISTS idx_trips_status_start ON trips(status, start_time);
CREATE INDEX IF NOT EXISTS idx_history_trip ON trip_assignment_history(trip_id, created_at);
`
